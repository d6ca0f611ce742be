package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInventoryRecord(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	meta := Metadata{
		UniqueID:    "error-payment-timeout-2026-08-29",
		Type:        EntryTypeErrorPattern,
		Component:   "payments",
		Importance:  ImportanceHigh,
		ContentHash: HashContent("x"),
		CreatedAt:   "2026-08-29",
	}

	rec := NewInventoryRecord(meta, now)

	assert.Equal(t, meta.UniqueID, rec.UniqueID)
	assert.Equal(t, 1, rec.Version, "version defaults to 1")
	assert.False(t, rec.Deprecated)
	assert.Equal(t, now, rec.StoredAt)
	assert.Equal(t, now, rec.UpdatedAt)

	meta.Version = 4
	assert.Equal(t, 4, NewInventoryRecord(meta, now).Version)
}

func TestInventoryRecordIsStale(t *testing.T) {
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	maxAge := 90 * 24 * time.Hour

	t.Run("old active record is stale", func(t *testing.T) {
		rec := &InventoryRecord{UpdatedAt: now.Add(-100 * 24 * time.Hour)}
		assert.True(t, rec.IsStale(now, maxAge))
	})

	t.Run("recent record is not stale", func(t *testing.T) {
		rec := &InventoryRecord{UpdatedAt: now.Add(-10 * 24 * time.Hour)}
		assert.False(t, rec.IsStale(now, maxAge))
	})

	t.Run("deprecated records are never stale", func(t *testing.T) {
		rec := &InventoryRecord{UpdatedAt: now.Add(-365 * 24 * time.Hour), Deprecated: true}
		assert.False(t, rec.IsStale(now, maxAge))
	})
}
