//go:build integration

package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/testutil"
)

func TestPGStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPGStore(pool)
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))

	require.NoError(t, store.Upsert(ctx, "knowledge",
		Point{
			ID:      "point-a",
			Content: "read-through caching for the gateway",
			Vector:  []float32{1, 0, 0},
			Payload: map[string]interface{}{
				FieldUniqueID:    "arch-decision-caching",
				FieldContentHash: "hash-a",
			},
		},
		Point{
			ID:      "point-b",
			Content: "event sourcing for order history",
			Vector:  []float32{0, 1, 0},
			Payload: map[string]interface{}{
				FieldUniqueID:    "arch-decision-events",
				FieldContentHash: "hash-b",
			},
		},
	))

	matches, err := store.Search(ctx, "knowledge", []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "point-a", matches[0].Point.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.InDelta(t, 0.9939, matches[0].Score, 0.001)
}

func TestPGStore_EnsureCollectionDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPGStore(pool)
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))

	err := store.EnsureCollection(ctx, "knowledge", 4)
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeConfiguration, domain.ErrorCode(err))
}

func TestPGStore_FindByFieldAndSetPayloadFields(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPGStore(pool)
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))

	require.NoError(t, store.Upsert(ctx, "knowledge", Point{
		ID:     "point-a",
		Vector: []float32{1, 0, 0},
		Payload: map[string]interface{}{
			FieldUniqueID:    "arch-decision-caching",
			FieldContentHash: "hash-a",
		},
	}))

	found, err := store.FindByField(ctx, "knowledge", FieldUniqueID, "arch-decision-caching")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "point-a", found[0].ID)

	require.NoError(t, store.SetPayloadFields(ctx, "knowledge", "point-a", map[string]interface{}{
		FieldDeprecated: true,
		"superseded_by": "point-b",
	}))

	found, err = store.FindByField(ctx, "knowledge", FieldUniqueID, "arch-decision-caching")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.True(t, found[0].IsDeprecated())
	assert.Equal(t, "point-b", found[0].Payload["superseded_by"])

	// Deprecated points never come back from Search.
	matches, err := store.Search(ctx, "knowledge", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	err = store.SetPayloadFields(ctx, "knowledge", "point-missing", map[string]interface{}{FieldDeprecated: true})
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestPGStore_Count(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	store := NewPGStore(pool)
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))

	count, err := store.Count(ctx, "knowledge")
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.Upsert(ctx, "knowledge", Point{ID: "point-a", Vector: []float32{1, 0, 0}}))
	require.NoError(t, store.Upsert(ctx, "knowledge", Point{ID: "point-a", Vector: []float32{0, 1, 0}}))

	count, err = store.Count(ctx, "knowledge")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
