package service

import (
	"context"
	"log"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/telemetry"
)

// ReviewDigest summarizes the ledger with the records due for review.
type ReviewDigest struct {
	Summary *domain.InventorySummary
	Stale   []*domain.InventoryRecord
}

// ReviewService produces periodic knowledge base health digests for
// the background worker and the inventory endpoints.
type ReviewService struct {
	inventory *InventoryService
}

// NewReviewService creates a ReviewService instance
func NewReviewService(inventory *InventoryService) *ReviewService {
	return &ReviewService{inventory: inventory}
}

// Digest returns the current inventory summary together with every
// active record past its review age.
func (s *ReviewService) Digest(ctx context.Context) (*ReviewDigest, error) {
	ctx, span := telemetry.StartSpan(ctx, "ReviewService.Digest", telemetry.SpanAttributes{
		Operation: "review_digest",
	})
	defer span.End()

	summary, err := s.inventory.Summary(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	stale, err := s.inventory.Stale(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ReviewDigest{Summary: summary, Stale: stale}, nil
}

// Sweep runs one review pass and logs the outcome. Failures are
// logged rather than returned so a broken pass never stops the worker.
func (s *ReviewService) Sweep(ctx context.Context) {
	digest, err := s.Digest(ctx)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		log.Printf("review sweep failed: %v", err)
		return
	}

	log.Printf("review sweep: %d total, %d active, %d deprecated, %d stale",
		digest.Summary.Total, digest.Summary.Active, digest.Summary.DeprecatedCount, len(digest.Stale))

	for _, rec := range digest.Stale {
		log.Printf("stale entry %s (%s) stored %s", rec.UniqueID, rec.Type, rec.StoredAt.Format("2006-01-02"))
	}
}
