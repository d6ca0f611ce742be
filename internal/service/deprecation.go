package service

import (
	"context"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/telemetry"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

// DeprecationService retires entries without deleting them: the
// vector points are flagged so search skips them and the ledger row
// keeps the full history.
type DeprecationService struct {
	store     vectorstore.Store
	router    *StorageRouter
	inventory *InventoryService
}

// NewDeprecationService creates a DeprecationService instance
func NewDeprecationService(store vectorstore.Store, router *StorageRouter, inventory *InventoryService) *DeprecationService {
	return &DeprecationService{store: store, router: router, inventory: inventory}
}

// Deprecate retires an entry by unique_id across the vector store and
// the ledger.
func (s *DeprecationService) Deprecate(ctx context.Context, uniqueID, supersededBy, reason string) (*domain.InventoryRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "DeprecationService.Deprecate", telemetry.SpanAttributes{
		UniqueID:  uniqueID,
		Operation: "deprecate",
	})
	defer span.End()

	rec, err := s.inventory.Get(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	if rec.Deprecated {
		return nil, domain.ErrAlreadyDeprecated
	}

	collection, err := s.router.CollectionFor(rec.Type)
	if err != nil {
		return nil, err
	}

	points, err := s.store.FindByField(ctx, collection, vectorstore.FieldUniqueID, uniqueID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	for _, p := range points {
		if p.IsDeprecated() {
			continue
		}
		if err := s.router.Deprecate(ctx, rec.Type, p.ID, supersededBy); err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	return s.inventory.Deprecate(ctx, uniqueID, supersededBy, reason)
}
