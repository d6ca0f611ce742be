package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/domain"
)

func TestMemoryStore_EnsureCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 4))

	t.Run("idempotent for matching dimension", func(t *testing.T) {
		assert.NoError(t, store.EnsureCollection(ctx, "knowledge", 4))
	})

	t.Run("dimension mismatch is a configuration error", func(t *testing.T) {
		err := store.EnsureCollection(ctx, "knowledge", 8)
		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeConfiguration, domain.ErrorCode(err))
	})
}

func TestMemoryStore_UpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 3))

	points := []Point{
		{ID: "a", Content: "alpha", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{FieldUniqueID: "bp-alpha"}},
		{ID: "b", Content: "beta", Vector: []float32{0, 1, 0}, Payload: map[string]interface{}{FieldUniqueID: "bp-beta"}},
		{ID: "c", Content: "gamma", Vector: []float32{0.9, 0.1, 0}, Payload: map[string]interface{}{FieldUniqueID: "bp-gamma"}},
	}
	require.NoError(t, store.Upsert(ctx, "knowledge", points...))

	t.Run("search orders by similarity", func(t *testing.T) {
		matches, err := store.Search(ctx, "knowledge", []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].Point.ID)
		assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
		assert.Equal(t, "c", matches[1].Point.ID)
		assert.Greater(t, matches[0].Score, matches[1].Score)
	})

	t.Run("upsert replaces by id", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, "knowledge", Point{
			ID: "a", Content: "alpha v2", Vector: []float32{0, 0, 1},
			Payload: map[string]interface{}{FieldUniqueID: "bp-alpha"},
		}))

		count, err := store.Count(ctx, "knowledge")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("dimension mismatch on upsert fails", func(t *testing.T) {
		err := store.Upsert(ctx, "knowledge", Point{ID: "bad", Vector: []float32{1, 2}})
		require.Error(t, err)
		assert.False(t, domain.IsTransient(err))
	})

	t.Run("unknown collection fails", func(t *testing.T) {
		_, err := store.Search(ctx, "missing", []float32{1, 0, 0}, 1)
		assert.Error(t, err)
	})
}

func TestMemoryStore_FindByField(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 2))
	require.NoError(t, store.Upsert(ctx, "knowledge",
		Point{ID: "a", Vector: []float32{1, 0}, Payload: map[string]interface{}{FieldContentHash: "h1", FieldUniqueID: "bp-a"}},
		Point{ID: "b", Vector: []float32{0, 1}, Payload: map[string]interface{}{FieldContentHash: "h2", FieldUniqueID: "bp-b"}},
	))

	found, err := store.FindByField(ctx, "knowledge", FieldContentHash, "h1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "a", found[0].ID)
	assert.Equal(t, "bp-a", found[0].UniqueID())

	none, err := store.FindByField(ctx, "knowledge", FieldContentHash, "h3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_SetPayloadFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureCollection(ctx, "knowledge", 2))
	require.NoError(t, store.Upsert(ctx, "knowledge",
		Point{ID: "a", Vector: []float32{1, 0}, Payload: map[string]interface{}{FieldUniqueID: "bp-a"}},
	))

	require.NoError(t, store.SetPayloadFields(ctx, "knowledge", "a", map[string]interface{}{
		FieldDeprecated: true,
		"superseded_by": "bp-a-v2",
	}))

	t.Run("deprecated points drop out of search", func(t *testing.T) {
		matches, err := store.Search(ctx, "knowledge", []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("but remain findable by field", func(t *testing.T) {
		found, err := store.FindByField(ctx, "knowledge", FieldUniqueID, "bp-a")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.True(t, found[0].IsDeprecated())
	})

	t.Run("missing point returns not found", func(t *testing.T) {
		err := store.SetPayloadFields(ctx, "knowledge", "zzz", map[string]interface{}{FieldDeprecated: true})
		assert.ErrorIs(t, err, domain.ErrEntryNotFound)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
