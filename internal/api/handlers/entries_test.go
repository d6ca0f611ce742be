package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/domain"
)

func TestEntryFromRequest(t *testing.T) {
	req := SubmitEntryRequest{
		Content: "decision body",
		Metadata: map[string]interface{}{
			"unique_id":       "arch-decision-caching",
			"type":            "architecture_decision",
			"component":       "api-gateway",
			"importance":      "high",
			"created_at":      "2026-08-29",
			"keywords":        []interface{}{"caching", "performance"},
			"related_ids":     []interface{}{"arch-decision-cdn"},
			"confidence":      0.9,
			"version":         float64(2),
			"breaking_change": true,
			"custom_note":     "free-form",
		},
	}

	entry := entryFromRequest(req)

	assert.Equal(t, "decision body", entry.Content)
	assert.Equal(t, "arch-decision-caching", entry.Metadata.UniqueID)
	assert.Equal(t, domain.EntryTypeArchitectureDecision, entry.Metadata.Type)
	assert.Equal(t, domain.ImportanceHigh, entry.Metadata.Importance)
	assert.Equal(t, []string{"caching", "performance"}, entry.Metadata.Keywords)
	assert.Equal(t, []string{"arch-decision-cdn"}, entry.Metadata.RelatedIDs)
	assert.Equal(t, 0.9, entry.Metadata.Confidence)
	assert.Equal(t, 2, entry.Metadata.Version)

	// Type-specific and unknown keys survive in Extra, core keys do not.
	assert.Equal(t, true, entry.Metadata.Extra["breaking_change"])
	assert.Equal(t, "free-form", entry.Metadata.Extra["custom_note"])
	assert.NotContains(t, entry.Metadata.Extra, "unique_id")
	assert.NotContains(t, entry.Metadata.Extra, "type")
}

func TestEntryFromRequest_EmptyMetadata(t *testing.T) {
	entry := entryFromRequest(SubmitEntryRequest{Content: "body"})

	require.NotNil(t, entry.Metadata.Extra)
	assert.Empty(t, entry.Metadata.UniqueID)
	assert.Empty(t, entry.Metadata.Keywords)
}
