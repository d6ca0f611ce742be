package service

import (
	"context"
	"errors"
	"log"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/quality"
	"github.com/recallkit/recallkit/internal/retrying"
	"github.com/recallkit/recallkit/internal/schema"
	"github.com/recallkit/recallkit/internal/telemetry"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

// SubmitStatus is the terminal state of a submission.
type SubmitStatus string

const (
	SubmitStatusStored        SubmitStatus = "stored"
	SubmitStatusUpdated       SubmitStatus = "updated"
	SubmitStatusRejected      SubmitStatus = "rejected"
	SubmitStatusSkippedExact  SubmitStatus = "skipped_exact_duplicate"
	SubmitStatusSkippedNear   SubmitStatus = "skipped_near_duplicate"
	SubmitStatusNeedsDecision SubmitStatus = "near_duplicate_needs_decision"
)

// NearDuplicateDecision is the caller's choice for near duplicates
// inside the decision band.
type NearDuplicateDecision string

const (
	DecisionNone   NearDuplicateDecision = ""
	DecisionStore  NearDuplicateDecision = "store"
	DecisionSkip   NearDuplicateDecision = "skip"
	DecisionUpdate NearDuplicateDecision = "update"
)

// Embedder generates embeddings for entry content.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DuplicateCheckerInterface classifies submissions against stored content.
type DuplicateCheckerInterface interface {
	Check(ctx context.Context, input CheckInput) (*CheckResult, error)
}

// RouterInterface persists entries into routed collections.
type RouterInterface interface {
	CollectionFor(t domain.EntryType) (string, error)
	Store(ctx context.Context, e *domain.Entry, embedding []float32) (*StoreResult, error)
	Update(ctx context.Context, e *domain.Entry, embedding []float32, existing vectorstore.Point) (*StoreResult, error)
}

// InventoryRecorder keeps the ledger in step with the vector store:
// new versions are recorded and superseded entries deprecated.
type InventoryRecorder interface {
	Record(ctx context.Context, m domain.Metadata, version int) error
	Deprecate(ctx context.Context, uniqueID, supersededBy, reason string) (*domain.InventoryRecord, error)
}

// SubmitInput is one entry submission.
type SubmitInput struct {
	Entry    domain.Entry
	Decision NearDuplicateDecision
}

// SubmitOutput reports what happened to a submission. Violations and
// Warnings are populated on rejection; Hash is set as soon as the
// content passed validation.
type SubmitOutput struct {
	Status     SubmitStatus
	UniqueID   string
	PointID    string
	Collection string
	Hash       string
	Version    int

	MatchID string
	Score   float64

	Violations []domain.Violation
	Warnings   []string
}

// Pipeline runs a submission through the full curation flow:
// quality gate, schema validation, hashing, duplicate classification,
// routed storage and ledger recording.
type Pipeline struct {
	validator *schema.Validator
	gate      *quality.Gate
	checker   DuplicateCheckerInterface
	router    RouterInterface
	inventory InventoryRecorder
	embedder  Embedder
	retry     retrying.Policy
}

// NewPipeline creates a Pipeline instance
func NewPipeline(
	validator *schema.Validator,
	gate *quality.Gate,
	checker DuplicateCheckerInterface,
	router RouterInterface,
	inventory InventoryRecorder,
	embedder Embedder,
) *Pipeline {
	return &Pipeline{
		validator: validator,
		gate:      gate,
		checker:   checker,
		router:    router,
		inventory: inventory,
		embedder:  embedder,
		retry:     retrying.DefaultPolicy(),
	}
}

// NewPipelineWithRetry creates a Pipeline with a custom retry policy
// (for testing).
func NewPipelineWithRetry(
	validator *schema.Validator,
	gate *quality.Gate,
	checker DuplicateCheckerInterface,
	router RouterInterface,
	inventory InventoryRecorder,
	embedder Embedder,
	retry retrying.Policy,
) *Pipeline {
	p := NewPipeline(validator, gate, checker, router, inventory, embedder)
	p.retry = retry
	return p
}

// Submit processes one entry. Rejections return the output with every
// violation alongside a ValidationError; duplicate skips are reported
// as outcomes, not errors.
func (p *Pipeline) Submit(ctx context.Context, input SubmitInput) (*SubmitOutput, error) {
	entry := input.Entry

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Submit", telemetry.SpanAttributes{
		UniqueID:  entry.Metadata.UniqueID,
		EntryType: string(entry.Metadata.Type),
		Operation: "submit",
	})
	defer span.End()

	out := &SubmitOutput{UniqueID: entry.Metadata.UniqueID}

	// Validation runs in full before anything else: the caller gets
	// every violation in one pass, and no hash or embedding is
	// computed for a rejected entry.
	report := p.gate.Screen(entry.Content, entry.Metadata.Type)
	out.Warnings = report.Warnings

	violations := append(report.Errors, p.validator.Validate(&entry)...)
	if len(violations) > 0 {
		out.Status = SubmitStatusRejected
		out.Violations = violations
		return out, domain.NewValidationError(violations)
	}

	entry.Metadata.ContentHash = domain.HashContent(entry.Content)
	out.Hash = entry.Metadata.ContentHash

	collection, err := p.router.CollectionFor(entry.Metadata.Type)
	if err != nil {
		return nil, err
	}
	out.Collection = collection

	var vector []float32
	err = p.retry.Do(ctx, "embed content", func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = p.embedder.Embed(ctx, entry.Content)
		return embedErr
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var check *CheckResult
	err = p.retry.Do(ctx, "duplicate check", func(ctx context.Context) error {
		var checkErr error
		check, checkErr = p.checker.Check(ctx, CheckInput{
			Collection:  collection,
			UniqueID:    entry.Metadata.UniqueID,
			ContentHash: entry.Metadata.ContentHash,
			Embedding:   vector,
		})
		return checkErr
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if check.Status == DuplicateStatusExact {
		out.Status = SubmitStatusSkippedExact
		out.MatchID = check.MatchID
		out.Score = check.Score
		log.Printf("skipping exact duplicate of %s (hash %s)", check.MatchID, out.Hash)
		return out, nil
	}

	// A unique_id collision routes to the update path no matter how
	// the similarity check came out.
	if check.Collision {
		return p.update(ctx, out, &entry, vector, *check.ExistingPoint)
	}

	if check.Status == DuplicateStatusNear {
		out.MatchID = check.MatchID
		out.Score = check.Score

		if check.AutoSkip {
			out.Status = SubmitStatusSkippedNear
			log.Printf("skipping near duplicate of %s (similarity %.4f)", check.MatchID, check.Score)
			return out, nil
		}

		switch input.Decision {
		case DecisionSkip:
			out.Status = SubmitStatusSkippedNear
			return out, nil
		case DecisionUpdate:
			return p.update(ctx, out, &entry, vector, *check.Match)
		case DecisionStore:
			// fall through to store
		default:
			out.Status = SubmitStatusNeedsDecision
			return out, nil
		}
	}

	var stored *StoreResult
	err = p.retry.Do(ctx, "store entry", func(ctx context.Context) error {
		var storeErr error
		stored, storeErr = p.router.Store(ctx, &entry, vector)
		return storeErr
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := p.inventory.Record(ctx, entry.Metadata, stored.Version); err != nil {
		return nil, err
	}

	out.Status = SubmitStatusStored
	out.PointID = stored.PointID
	out.Version = stored.Version
	return out, nil
}

func (p *Pipeline) update(ctx context.Context, out *SubmitOutput, entry *domain.Entry, vector []float32, existing vectorstore.Point) (*SubmitOutput, error) {
	var result *StoreResult
	err := p.retry.Do(ctx, "update entry", func(ctx context.Context) error {
		var updateErr error
		result, updateErr = p.router.Update(ctx, entry, vector, existing)
		return updateErr
	})
	if err != nil {
		return nil, err
	}

	if err := p.inventory.Record(ctx, entry.Metadata, result.Version); err != nil {
		return nil, err
	}

	// Updating a near duplicate under a different unique_id retires
	// the matched entry: its points are already deprecated, so the
	// ledger row must follow or it would report an active entry with
	// no live points.
	if prior := existing.UniqueID(); prior != "" && prior != entry.Metadata.UniqueID {
		_, err := p.inventory.Deprecate(ctx, prior, entry.Metadata.UniqueID, "superseded by near-duplicate update")
		if err != nil && !errors.Is(err, domain.ErrAlreadyDeprecated) {
			return nil, err
		}
	}

	out.Status = SubmitStatusUpdated
	out.PointID = result.PointID
	out.Version = result.Version
	return out, nil
}
