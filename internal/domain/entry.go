package domain

import (
	"fmt"
	"time"
)

// EntryType represents the type of a knowledge entry
type EntryType string

const (
	EntryTypeArchitectureDecision EntryType = "architecture_decision"
	EntryTypeAgentSpec            EntryType = "agent_spec"
	EntryTypeStoryOutcome         EntryType = "story_outcome"
	EntryTypeErrorPattern         EntryType = "error_pattern"
	EntryTypeDatabaseSchema       EntryType = "database_schema"
	EntryTypeConfigPattern        EntryType = "config_pattern"
	EntryTypeIntegrationExample   EntryType = "integration_example"
	EntryTypeBestPractice         EntryType = "best_practice"
)

// Importance represents the curation priority of an entry
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// CreatedAtLayout is the expected date layout for Metadata.CreatedAt
const CreatedAtLayout = "2006-01-02"

// Metadata carries the structured fields attached to every entry.
// Known optional fields are typed; anything else the caller sends
// travels in Extra untouched.
type Metadata struct {
	UniqueID    string
	Type        EntryType
	Component   string
	Importance  Importance
	CreatedAt   string
	ContentHash string

	Affects      []string
	Keywords     []string
	RelatedIDs   []string
	Version      int
	Confidence   float64
	Deprecated   bool
	SupersededBy string

	Extra map[string]interface{}
}

// Entry represents a knowledge entry submitted for curation
type Entry struct {
	Content  string
	Metadata Metadata
}

// TypeRequiredFields maps each entry type to the metadata fields it
// requires beyond the common set.
var TypeRequiredFields = map[EntryType][]string{
	EntryTypeArchitectureDecision: {"breaking_change"},
	EntryTypeAgentSpec:            {"agent_id", "agent_name"},
	EntryTypeStoryOutcome:         {"story_id", "epic_id"},
	EntryTypeErrorPattern:         {"severity"},
	EntryTypeDatabaseSchema:       {"table_name", "database"},
	EntryTypeConfigPattern:        {},
	EntryTypeIntegrationExample:   {},
	EntryTypeBestPractice:         {"domain", "technology", "category", "discovered_by"},
}

// TypeIDPrefixes maps each entry type to the prefix its unique_id must carry.
var TypeIDPrefixes = map[EntryType]string{
	EntryTypeArchitectureDecision: "arch-decision-",
	EntryTypeAgentSpec:            "agent-",
	EntryTypeStoryOutcome:         "story-",
	EntryTypeErrorPattern:         "error-",
	EntryTypeDatabaseSchema:       "schema-",
	EntryTypeConfigPattern:        "config-",
	EntryTypeIntegrationExample:   "integration-",
	EntryTypeBestPractice:         "bp-",
}

// AllEntryTypes lists every valid entry type.
func AllEntryTypes() []EntryType {
	return []EntryType{
		EntryTypeArchitectureDecision,
		EntryTypeAgentSpec,
		EntryTypeStoryOutcome,
		EntryTypeErrorPattern,
		EntryTypeDatabaseSchema,
		EntryTypeConfigPattern,
		EntryTypeIntegrationExample,
		EntryTypeBestPractice,
	}
}

// IsValidEntryType checks if an EntryType is valid
func IsValidEntryType(t EntryType) bool {
	switch t {
	case EntryTypeArchitectureDecision, EntryTypeAgentSpec, EntryTypeStoryOutcome,
		EntryTypeErrorPattern, EntryTypeDatabaseSchema, EntryTypeConfigPattern,
		EntryTypeIntegrationExample, EntryTypeBestPractice:
		return true
	}
	return false
}

// IsValidImportance checks if an Importance is valid
func IsValidImportance(i Importance) bool {
	switch i {
	case ImportanceCritical, ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

// ParseCreatedAt parses a Metadata.CreatedAt value.
func ParseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(CreatedAtLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("created_at must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}
