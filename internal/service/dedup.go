package service

import (
	"context"
	"fmt"

	"github.com/recallkit/recallkit/internal/vectorstore"
)

// DuplicateStatus classifies a submission against existing content
type DuplicateStatus string

const (
	DuplicateStatusNew   DuplicateStatus = "new"
	DuplicateStatusExact DuplicateStatus = "exact_duplicate"
	DuplicateStatusNear  DuplicateStatus = "near_duplicate"
)

// DefaultSimilarityThreshold is the lowest cosine similarity treated
// as a near duplicate.
const DefaultSimilarityThreshold = 0.85

// DefaultAutoSkipThreshold is the similarity above which a near
// duplicate is skipped without asking the caller.
const DefaultAutoSkipThreshold = 0.95

// CheckInput carries everything the duplicate checker needs.
type CheckInput struct {
	Collection  string
	UniqueID    string
	ContentHash string
	Embedding   []float32
}

// CheckResult is the duplicate classification for a submission.
// Collision is reported independently of the similarity outcome.
type CheckResult struct {
	Status   DuplicateStatus
	MatchID  string
	Match    *vectorstore.Point
	Score    float64
	AutoSkip bool

	Collision       bool
	ExistingPoint   *vectorstore.Point
	ExistingVersion int
}

// DuplicateChecker classifies submissions against the vector store.
type DuplicateChecker struct {
	store               vectorstore.Store
	similarityThreshold float64
	autoSkipThreshold   float64
}

// NewDuplicateChecker creates a DuplicateChecker. Non-positive
// thresholds fall back to the defaults.
func NewDuplicateChecker(store vectorstore.Store, similarityThreshold, autoSkipThreshold float64) *DuplicateChecker {
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}
	if autoSkipThreshold <= 0 {
		autoSkipThreshold = DefaultAutoSkipThreshold
	}
	return &DuplicateChecker{
		store:               store,
		similarityThreshold: similarityThreshold,
		autoSkipThreshold:   autoSkipThreshold,
	}
}

// Check classifies a submission. Order matters: the exact hash lookup
// is cheap and decisive, so it runs before the similarity search.
// A score exactly at the similarity threshold classifies as a near
// duplicate.
func (c *DuplicateChecker) Check(ctx context.Context, input CheckInput) (*CheckResult, error) {
	if input.ContentHash == "" {
		return nil, fmt.Errorf("content hash is required for duplicate check")
	}

	result := &CheckResult{Status: DuplicateStatusNew}

	byHash, err := c.store.FindByField(ctx, input.Collection, vectorstore.FieldContentHash, input.ContentHash)
	if err != nil {
		return nil, err
	}
	for i := range byHash {
		if byHash[i].IsDeprecated() {
			continue
		}
		result.Status = DuplicateStatusExact
		result.MatchID = byHash[i].UniqueID()
		result.Match = &byHash[i]
		result.Score = 1.0
		break
	}

	if result.Status == DuplicateStatusNew && len(input.Embedding) > 0 {
		matches, err := c.store.Search(ctx, input.Collection, input.Embedding, 1)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 && matches[0].Score >= c.similarityThreshold {
			result.Status = DuplicateStatusNear
			result.MatchID = matches[0].Point.UniqueID()
			point := matches[0].Point
			result.Match = &point
			result.Score = matches[0].Score
			result.AutoSkip = matches[0].Score >= c.autoSkipThreshold
		}
	}

	if input.UniqueID != "" {
		byID, err := c.store.FindByField(ctx, input.Collection, vectorstore.FieldUniqueID, input.UniqueID)
		if err != nil {
			return nil, err
		}
		for i := range byID {
			if byID[i].IsDeprecated() {
				continue
			}
			result.Collision = true
			result.ExistingPoint = &byID[i]
			result.ExistingVersion = payloadVersion(byID[i].Payload)
			break
		}
	}

	return result, nil
}

// Thresholds returns the configured similarity band.
func (c *DuplicateChecker) Thresholds() (similarity, autoSkip float64) {
	return c.similarityThreshold, c.autoSkipThreshold
}

func payloadVersion(payload map[string]interface{}) int {
	switch v := payload["version"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 1
}
