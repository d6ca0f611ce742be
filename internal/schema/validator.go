// Package schema validates entry metadata against the per-type
// schemas of the knowledge base. Validation is pure: it touches no
// collaborator and reports every violation it finds rather than
// stopping at the first.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/recallkit/recallkit/internal/domain"
)

const (
	// MinUniqueIDLength is the shortest acceptable unique_id
	MinUniqueIDLength = 5

	// MaxMetadataBytes caps the serialized size of the Extra map
	MaxMetadataBytes = 1 << 20
	// MaxMetadataDepth caps nesting of the Extra map
	MaxMetadataDepth = 100

	storyOutcomeIDSuffix = "-complete"
)

// Validator checks entries against the metadata schemas.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks an entry's metadata and returns every violation
// found. An empty slice means the entry passed.
func (v *Validator) Validate(e *domain.Entry) []domain.Violation {
	if e == nil {
		return []domain.Violation{{Field: "entry", Message: "entry cannot be nil"}}
	}
	return v.ValidateMetadata(&e.Metadata)
}

// ValidateMetadata checks metadata alone. The content-derived fields
// (content_hash) are excluded here: hashing happens after validation.
func (v *Validator) ValidateMetadata(m *domain.Metadata) []domain.Violation {
	var violations []domain.Violation
	add := func(field, message string) {
		violations = append(violations, domain.Violation{Field: field, Message: message})
	}

	if m.Type == "" {
		add("type", "is required")
	} else if !domain.IsValidEntryType(m.Type) {
		add("type", fmt.Sprintf("unknown type %q", m.Type))
	}

	v.checkUniqueID(m, add)

	if m.Component == "" {
		add("component", "is required")
	}

	if m.Importance == "" {
		add("importance", "is required")
	} else if !domain.IsValidImportance(m.Importance) {
		add("importance", fmt.Sprintf("%q is not one of critical, high, medium, low", m.Importance))
	}

	if m.CreatedAt == "" {
		add("created_at", "is required")
	} else if _, err := domain.ParseCreatedAt(m.CreatedAt); err != nil {
		add("created_at", fmt.Sprintf("%q is not a valid YYYY-MM-DD date", m.CreatedAt))
	}

	v.checkTypeFields(m, add)
	v.checkOptionalFields(m, add)
	v.checkExtraLimits(m, add)

	return violations
}

func (v *Validator) checkUniqueID(m *domain.Metadata, add func(field, message string)) {
	if m.UniqueID == "" {
		add("unique_id", "is required")
		return
	}
	if len(m.UniqueID) < MinUniqueIDLength {
		add("unique_id", fmt.Sprintf("must be at least %d characters", MinUniqueIDLength))
	}
	if strings.ContainsAny(m.UniqueID, " \t\n") {
		add("unique_id", "must not contain whitespace")
	}

	if !domain.IsValidEntryType(m.Type) {
		return
	}
	prefix := domain.TypeIDPrefixes[m.Type]
	if !strings.HasPrefix(m.UniqueID, prefix) {
		add("unique_id", fmt.Sprintf("entries of type %s must start with %q", m.Type, prefix))
	}
	if m.Type == domain.EntryTypeStoryOutcome && !strings.HasSuffix(m.UniqueID, storyOutcomeIDSuffix) {
		add("unique_id", fmt.Sprintf("story outcome ids must end with %q", storyOutcomeIDSuffix))
	}
}

func (v *Validator) checkTypeFields(m *domain.Metadata, add func(field, message string)) {
	required, ok := domain.TypeRequiredFields[m.Type]
	if !ok {
		return
	}

	for _, field := range required {
		value, present := m.Extra[field]
		if !present {
			add(field, fmt.Sprintf("is required for type %s", m.Type))
			continue
		}

		switch field {
		case "breaking_change":
			if _, isBool := value.(bool); !isBool {
				add(field, "must be a boolean")
			}
		default:
			s, isString := value.(string)
			if !isString {
				add(field, "must be a string")
			} else if strings.TrimSpace(s) == "" {
				add(field, "must not be empty")
			}
		}
	}

	if m.Type == domain.EntryTypeErrorPattern {
		if sev, ok := m.Extra["severity"].(string); ok && sev != "" {
			switch sev {
			case "critical", "high", "medium", "low":
			default:
				add("severity", fmt.Sprintf("%q is not one of critical, high, medium, low", sev))
			}
		}
	}
}

func (v *Validator) checkOptionalFields(m *domain.Metadata, add func(field, message string)) {
	if m.Confidence != 0 && (m.Confidence < 0 || m.Confidence > 1) {
		add("confidence", "must be between 0 and 1")
	}
	if m.Version < 0 {
		add("version", "must be at least 1")
	}
	if m.SupersededBy != "" && m.SupersededBy == m.UniqueID {
		add("superseded_by", "cannot reference the entry itself")
	}
	for i, id := range m.RelatedIDs {
		if strings.TrimSpace(id) == "" {
			add("related_ids", fmt.Sprintf("entry %d is empty", i))
		}
	}
}

// checkExtraLimits guards against pathological metadata payloads:
// oversized maps and deeply nested structures are rejected before
// they reach the store.
func (v *Validator) checkExtraLimits(m *domain.Metadata, add func(field, message string)) {
	if len(m.Extra) == 0 {
		return
	}

	if depth := nestingDepth(m.Extra, 1); depth > MaxMetadataDepth {
		add("metadata", fmt.Sprintf("nesting exceeds %d levels", MaxMetadataDepth))
		return
	}

	raw, err := json.Marshal(m.Extra)
	if err != nil {
		add("metadata", "contains values that cannot be serialized")
		return
	}
	if len(raw) > MaxMetadataBytes {
		add("metadata", fmt.Sprintf("serialized size %d exceeds %d bytes", len(raw), MaxMetadataBytes))
	}
}

func nestingDepth(value interface{}, depth int) int {
	if depth > MaxMetadataDepth {
		return depth
	}

	max := depth
	switch val := value.(type) {
	case map[string]interface{}:
		for _, child := range val {
			if d := nestingDepth(child, depth+1); d > max {
				max = d
			}
		}
	case []interface{}:
		for _, child := range val {
			if d := nestingDepth(child, depth+1); d > max {
				max = d
			}
		}
	}
	return max
}
