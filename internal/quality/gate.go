// Package quality screens entry content before it is hashed or
// embedded. Fatal problems (length bounds, credential-like material)
// reject the entry; advisory problems surface as warnings the caller
// may ignore.
package quality

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/recallkit/recallkit/internal/domain"
)

// Default content length bounds
const (
	DefaultMinContentLength = 100
	DefaultMaxContentLength = 50000
)

// forbiddenPatterns match credential-like assignments. Any hit is
// fatal: secrets must never reach the knowledge base.
var forbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)api[-_]?key\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)secret\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)token\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)private[-_]key\s*[:=]\s*\S+`),
	regexp.MustCompile(`(?i)\bpassword\b`),
	regexp.MustCompile(`(?i)\bapi_key\b`),
}

// placeholderMarkers flag unfinished content. Warnings only.
var placeholderMarkers = []string{"TODO", "FIXME", "TBD", "[INSERT", "[PLACEHOLDER"}

// recommendedSections lists the topics a complete entry of each type
// is expected to mention. Missing ones warn, never reject.
var recommendedSections = map[domain.EntryType][]string{
	domain.EntryTypeStoryOutcome:         {"integration", "error", "test"},
	domain.EntryTypeErrorPattern:         {"resolution", "fix"},
	domain.EntryTypeArchitectureDecision: {"rationale", "trade-off"},
}

// Report is the outcome of a quality screen. Errors reject the
// entry; warnings accompany it downstream.
type Report struct {
	Errors   []domain.Violation
	Warnings []string
}

// OK reports whether the content passed the gate.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Gate screens content against length and safety rules.
type Gate struct {
	minLength int
	maxLength int
}

// NewGate creates a Gate with the given content length bounds.
// Non-positive bounds fall back to the defaults.
func NewGate(minLength, maxLength int) *Gate {
	if minLength <= 0 {
		minLength = DefaultMinContentLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxContentLength
	}
	return &Gate{minLength: minLength, maxLength: maxLength}
}

// Screen checks content quality for an entry of the given type.
func (g *Gate) Screen(content string, entryType domain.EntryType) *Report {
	report := &Report{}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		report.Errors = append(report.Errors, domain.Violation{
			Field: "content", Message: "content is empty",
		})
		return report
	}

	// Length bounds count characters, not bytes.
	length := utf8.RuneCountInString(content)
	if length < g.minLength {
		report.Errors = append(report.Errors, domain.Violation{
			Field:   "content",
			Message: fmt.Sprintf("length %d is below the minimum of %d", length, g.minLength),
		})
	}
	if length > g.maxLength {
		report.Errors = append(report.Errors, domain.Violation{
			Field:   "content",
			Message: fmt.Sprintf("length %d exceeds the maximum of %d", length, g.maxLength),
		})
	}

	for _, pattern := range forbiddenPatterns {
		if match := pattern.FindString(content); match != "" {
			report.Errors = append(report.Errors, domain.Violation{
				Field:   "content",
				Message: fmt.Sprintf("contains forbidden credential pattern %q", truncateMatch(match)),
			})
			break
		}
	}

	upper := strings.ToUpper(content)
	for _, marker := range placeholderMarkers {
		if strings.Contains(upper, marker) {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("content contains placeholder marker %q", marker))
		}
	}

	lower := strings.ToLower(content)
	for _, section := range recommendedSections[entryType] {
		if !strings.Contains(lower, section) {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("entries of type %s usually cover %q", entryType, section))
		}
	}

	return report
}

func truncateMatch(match string) string {
	if len(match) > 24 {
		return match[:24] + "..."
	}
	return match
}
