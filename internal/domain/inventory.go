package domain

import "time"

// InventoryRecord is the ledger entry kept for every stored knowledge
// entry. Records are append-only; deprecation flips a flag but never
// removes a row.
type InventoryRecord struct {
	UniqueID          string
	Type              EntryType
	Component         string
	Importance        Importance
	ContentHash       string
	Version           int
	Deprecated        bool
	SupersededBy      string
	DeprecationReason string
	CreatedAt         string
	StoredAt          time.Time
	UpdatedAt         time.Time
}

// InventorySummary aggregates the ledger for reporting.
type InventorySummary struct {
	Total           int
	Active          int
	DeprecatedCount int
	ByType          map[EntryType]int
	ByImportance    map[Importance]int
	ByComponent     map[string]int
}

// NewInventoryRecord builds a ledger record from a stored entry.
func NewInventoryRecord(m Metadata, storedAt time.Time) *InventoryRecord {
	version := m.Version
	if version < 1 {
		version = 1
	}
	return &InventoryRecord{
		UniqueID:    m.UniqueID,
		Type:        m.Type,
		Component:   m.Component,
		Importance:  m.Importance,
		ContentHash: m.ContentHash,
		Version:     version,
		CreatedAt:   m.CreatedAt,
		StoredAt:    storedAt,
		UpdatedAt:   storedAt,
	}
}

// IsStale reports whether an active record has gone without updates
// for longer than maxAge as of now.
func (r *InventoryRecord) IsStale(now time.Time, maxAge time.Duration) bool {
	if r.Deprecated {
		return false
	}
	return now.Sub(r.UpdatedAt) > maxAge
}
