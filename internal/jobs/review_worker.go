package jobs

import (
	"context"
)

// ReviewSweeper runs one knowledge base review pass.
type ReviewSweeper interface {
	Sweep(ctx context.Context)
}

// ReviewWorker periodically sweeps the inventory ledger for stale
// entries and logs a health digest.
type ReviewWorker struct {
	sweeper ReviewSweeper
}

// NewReviewWorker creates a new ReviewWorker instance
func NewReviewWorker(sweeper ReviewSweeper) *ReviewWorker {
	return &ReviewWorker{sweeper: sweeper}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReviewWorker) ProcessJobs(ctx context.Context) error {
	w.sweeper.Sweep(ctx)
	return nil
}
