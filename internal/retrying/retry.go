// Package retrying applies bounded exponential backoff to
// collaborator calls. Validation and routing logic is never retried;
// only errors marked transient get another attempt.
package retrying

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/recallkit/recallkit/internal/domain"
)

const (
	// DefaultMaxAttempts bounds the total tries per collaborator call
	DefaultMaxAttempts = 3
	// DefaultInitialInterval is the first backoff delay
	DefaultInitialInterval = 200 * time.Millisecond
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
}

// DefaultPolicy returns the standard collaborator retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: DefaultInitialInterval,
	}
}

// Do runs fn under the policy. Transient collaborator errors are
// retried up to MaxAttempts total attempts; any other error returns
// immediately.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	expo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		expo.InitialInterval = p.InitialInterval
	}
	expo.MaxElapsedTime = 0

	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxAttempts-1)), ctx)

	return backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		if attempt < maxAttempts {
			log.Printf("%s failed (attempt %d/%d), retrying: %v", operation, attempt, maxAttempts, err)
		}
		return err
	}, policy)
}

// Do runs fn under the default policy.
func Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return DefaultPolicy().Do(ctx, operation, fn)
}
