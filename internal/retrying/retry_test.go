package retrying

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/domain"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialInterval: time.Millisecond}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "upsert", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "upsert", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.NewTransientError("vector store", errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	transient := domain.NewTransientError("vector store", errors.New("timeout"))

	err := fastPolicy().Do(context.Background(), "upsert", func(ctx context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, domain.IsTransient(err))
}

func TestDo_PermanentErrorsFailImmediately(t *testing.T) {
	calls := 0
	permanent := domain.NewPermanentError("embedding provider", errors.New("model not found"))

	err := fastPolicy().Do(context.Background(), "embed", func(ctx context.Context) error {
		calls++
		return permanent
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, permanent.Err)
}

func TestDo_PlainErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "validate", func(ctx context.Context) error {
		calls++
		return errors.New("invalid input")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Policy{MaxAttempts: 10, InitialInterval: 50 * time.Millisecond}.Do(ctx, "upsert", func(ctx context.Context) error {
		calls++
		cancel()
		return domain.NewTransientError("vector store", errors.New("slow"))
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}
