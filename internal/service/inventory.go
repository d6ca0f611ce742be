package service

import (
	"context"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/pagination"
	"github.com/recallkit/recallkit/internal/telemetry"
)

// InventoryRepositoryInterface defines the repository interface for
// the inventory ledger.
type InventoryRepositoryInterface interface {
	Upsert(ctx context.Context, rec *domain.InventoryRecord) error
	GetByUniqueID(ctx context.Context, uniqueID string) (*domain.InventoryRecord, error)
	MarkDeprecated(ctx context.Context, uniqueID, supersededBy, reason string) error
	Summary(ctx context.Context) (*domain.InventorySummary, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]*domain.InventoryRecord, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*InventoryPageResult, error)
}

// InventoryPageResult is one page of ledger records.
type InventoryPageResult struct {
	Items      []*domain.InventoryRecord
	NextCursor string
	HasMore    bool
}

// InventoryService maintains the ledger of everything the knowledge
// base holds. The ledger only grows: deprecation flips a flag, no
// operation removes a record.
type InventoryService struct {
	repo       InventoryRepositoryInterface
	staleAfter time.Duration
	now        Clock
}

// NewInventoryService creates a new InventoryService instance
func NewInventoryService(repo InventoryRepositoryInterface, staleAfterDays int) *InventoryService {
	if staleAfterDays <= 0 {
		staleAfterDays = 90
	}
	return &InventoryService{
		repo:       repo,
		staleAfter: time.Duration(staleAfterDays) * 24 * time.Hour,
		now:        time.Now,
	}
}

// NewInventoryServiceWithClock creates an InventoryService with a
// fixed clock (for testing).
func NewInventoryServiceWithClock(repo InventoryRepositoryInterface, staleAfterDays int, now Clock) *InventoryService {
	s := NewInventoryService(repo, staleAfterDays)
	if now != nil {
		s.now = now
	}
	return s
}

// Record writes or refreshes the ledger row for a stored entry.
func (s *InventoryService) Record(ctx context.Context, m domain.Metadata, version int) error {
	ctx, span := telemetry.StartSpan(ctx, "InventoryService.Record", telemetry.SpanAttributes{
		UniqueID:  m.UniqueID,
		EntryType: string(m.Type),
		Operation: "record",
	})
	defer span.End()

	rec := domain.NewInventoryRecord(m, s.now().UTC())
	if version > rec.Version {
		rec.Version = version
	}
	return s.repo.Upsert(ctx, rec)
}

// Get returns the ledger record for a unique_id.
func (s *InventoryService) Get(ctx context.Context, uniqueID string) (*domain.InventoryRecord, error) {
	return s.repo.GetByUniqueID(ctx, uniqueID)
}

// Deprecate flips the deprecation flag on a ledger record. Already
// deprecated records are rejected rather than silently rewritten.
func (s *InventoryService) Deprecate(ctx context.Context, uniqueID, supersededBy, reason string) (*domain.InventoryRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "InventoryService.Deprecate", telemetry.SpanAttributes{
		UniqueID:  uniqueID,
		Operation: "deprecate",
	})
	defer span.End()

	rec, err := s.repo.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	if rec.Deprecated {
		return nil, domain.ErrAlreadyDeprecated
	}

	if err := s.repo.MarkDeprecated(ctx, uniqueID, supersededBy, reason); err != nil {
		return nil, err
	}

	rec.Deprecated = true
	rec.SupersededBy = supersededBy
	rec.DeprecationReason = reason
	rec.UpdatedAt = s.now().UTC()
	return rec, nil
}

// Summary aggregates ledger counts by type and importance.
func (s *InventoryService) Summary(ctx context.Context) (*domain.InventorySummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "InventoryService.Summary", telemetry.SpanAttributes{
		Operation: "summary",
	})
	defer span.End()

	return s.repo.Summary(ctx)
}

// Stale lists active records untouched for longer than the configured
// stale window.
func (s *InventoryService) Stale(ctx context.Context) ([]*domain.InventoryRecord, error) {
	cutoff := s.now().UTC().Add(-s.staleAfter)
	return s.repo.ListStale(ctx, cutoff)
}

// ListInput controls ledger pagination.
type ListInput struct {
	Cursor string
	Limit  int
}

// ListOutput is one page of ledger records with a continuation cursor.
type ListOutput struct {
	Items   []*domain.InventoryRecord
	Cursor  string
	HasMore bool
}

// List pages through the ledger, newest first. A malformed cursor is
// rejected rather than silently restarting from the first page.
func (s *InventoryService) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewValidationError([]domain.Violation{
			{Field: "cursor", Message: "invalid pagination cursor"},
		})
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.repo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}
