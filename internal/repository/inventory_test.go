//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/pagination"
	"github.com/recallkit/recallkit/internal/testutil"
)

func newTestRecord(uniqueID string, storedAt time.Time) *domain.InventoryRecord {
	return &domain.InventoryRecord{
		UniqueID:    uniqueID,
		Type:        domain.EntryTypeArchitectureDecision,
		Component:   "api-gateway",
		Importance:  domain.ImportanceHigh,
		ContentHash: domain.HashContent(uniqueID),
		Version:     1,
		CreatedAt:   "2026-08-29",
		StoredAt:    storedAt,
		UpdatedAt:   storedAt,
	}
}

func TestInventoryRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := newTestRecord("arch-decision-caching", now)
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.GetByUniqueID(ctx, "arch-decision-caching")
	require.NoError(t, err)
	assert.Equal(t, rec.UniqueID, got.UniqueID)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.ContentHash, got.ContentHash)
	assert.Equal(t, 1, got.Version)
	assert.False(t, got.Deprecated)
}

func TestInventoryRepository_GetMissing(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)

	_, err := repo.GetByUniqueID(ctx, "arch-decision-missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestInventoryRepository_UpsertConflictBumpsVersion(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := newTestRecord("arch-decision-caching", now)
	require.NoError(t, repo.Upsert(ctx, rec))

	rec.Version = 2
	rec.ContentHash = domain.HashContent("revised")
	rec.UpdatedAt = now.Add(time.Minute)
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.GetByUniqueID(ctx, "arch-decision-caching")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, domain.HashContent("revised"), got.ContentHash)
}

func TestInventoryRepository_UpsertReactivatesDeprecated(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := newTestRecord("arch-decision-caching", now)
	require.NoError(t, repo.Upsert(ctx, rec))
	require.NoError(t, repo.MarkDeprecated(ctx, "arch-decision-caching", "", "obsolete"))

	rec.Version = 2
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.GetByUniqueID(ctx, "arch-decision-caching")
	require.NoError(t, err)
	assert.False(t, got.Deprecated)
	assert.Empty(t, got.DeprecationReason)
	assert.Equal(t, 2, got.Version)
}

func TestInventoryRepository_MarkDeprecated(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Upsert(ctx, newTestRecord("arch-decision-caching", now)))
	require.NoError(t, repo.MarkDeprecated(ctx, "arch-decision-caching", "arch-decision-caching-v2", "superseded"))

	got, err := repo.GetByUniqueID(ctx, "arch-decision-caching")
	require.NoError(t, err)
	assert.True(t, got.Deprecated)
	assert.Equal(t, "arch-decision-caching-v2", got.SupersededBy)
	assert.Equal(t, "superseded", got.DeprecationReason)

	err = repo.MarkDeprecated(ctx, "arch-decision-missing", "", "")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestInventoryRepository_Summary(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := newTestRecord("arch-decision-caching", now)
	require.NoError(t, repo.Upsert(ctx, first))

	second := newTestRecord("bp-naming-conventions", now)
	second.Type = domain.EntryTypeBestPractice
	second.Importance = domain.ImportanceMedium
	second.Component = "conventions"
	require.NoError(t, repo.Upsert(ctx, second))

	third := newTestRecord("error-timeout-cascade", now)
	third.Type = domain.EntryTypeErrorPattern
	require.NoError(t, repo.Upsert(ctx, third))
	require.NoError(t, repo.MarkDeprecated(ctx, "error-timeout-cascade", "", "fixed upstream"))

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Active)
	assert.Equal(t, 1, summary.DeprecatedCount)
	assert.Equal(t, 1, summary.ByType[domain.EntryTypeArchitectureDecision])
	assert.Equal(t, 1, summary.ByType[domain.EntryTypeBestPractice])
	assert.Zero(t, summary.ByType[domain.EntryTypeErrorPattern])
	assert.Equal(t, 1, summary.ByImportance[domain.ImportanceHigh])
	assert.Equal(t, 1, summary.ByComponent["api-gateway"])
}

func TestInventoryRepository_ListStale(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := newTestRecord("arch-decision-old", now.Add(-120*24*time.Hour))
	require.NoError(t, repo.Upsert(ctx, old))

	fresh := newTestRecord("arch-decision-fresh", now)
	require.NoError(t, repo.Upsert(ctx, fresh))

	deprecated := newTestRecord("arch-decision-retired", now.Add(-200*24*time.Hour))
	require.NoError(t, repo.Upsert(ctx, deprecated))
	require.NoError(t, repo.MarkDeprecated(ctx, "arch-decision-retired", "", ""))

	stale, err := repo.ListStale(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "arch-decision-old", stale[0].UniqueID)
}

func TestInventoryRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewInventoryRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	ids := []string{"arch-decision-a", "arch-decision-b", "arch-decision-c"}
	for i, id := range ids {
		rec := newTestRecord(id, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Upsert(ctx, rec))
	}

	page, err := repo.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "arch-decision-c", page.Items[0].UniqueID)
	assert.Equal(t, "arch-decision-b", page.Items[1].UniqueID)
	require.NotEmpty(t, page.NextCursor)

	cursor, err := pagination.DecodeCursor(page.NextCursor)
	require.NoError(t, err)

	next, err := repo.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, "arch-decision-a", next.Items[0].UniqueID)
}
