package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/quality"
	"github.com/recallkit/recallkit/internal/schema"
)

// ValidationReport is the outcome of a local validation run.
type ValidationReport struct {
	Valid      bool               `json:"valid"`
	UniqueID   string             `json:"unique_id,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// ValidateCmd creates the validate command. Validation runs entirely
// locally, so entries can be checked before a server exists.
func ValidateCmd() *cobra.Command {
	var (
		file      string
		minLength int
		maxLength int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an entry locally without submitting it",
		Long: `Validate an entry against the metadata schema and content quality
rules without contacting the server. No embedding is generated and no
duplicate check runs.

Examples:
  # Validate a file
  recall validate --file entry.json

  # Validate from stdin
  cat entry.json | recall validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runValidate(file, minLength, maxLength, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (JSON entry)")
	cmd.Flags().IntVar(&minLength, "min-length", quality.DefaultMinContentLength, "Minimum content length")
	cmd.Flags().IntVar(&maxLength, "max-length", quality.DefaultMaxContentLength, "Maximum content length")

	return cmd
}

func runValidate(file string, minLength, maxLength int, outputJSON bool) error {
	input, err := readInput(file)
	if err != nil {
		return err
	}

	var req SubmitEntryRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return fmt.Errorf("failed to parse JSON input: %w", err)
	}

	entry := entryFromMetadata(req.Content, req.Metadata)
	report := validateEntry(&entry, minLength, maxLength)

	if outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
	} else {
		printValidationReport(report)
	}

	if !report.Valid {
		return fmt.Errorf("entry is invalid with %d violations", len(report.Violations))
	}
	return nil
}

func validateEntry(entry *domain.Entry, minLength, maxLength int) *ValidationReport {
	report := &ValidationReport{UniqueID: entry.Metadata.UniqueID}

	gate := quality.NewGate(minLength, maxLength)
	screen := gate.Screen(entry.Content, entry.Metadata.Type)
	report.Violations = append(report.Violations, screen.Errors...)
	report.Warnings = screen.Warnings

	validator := schema.NewValidator()
	report.Violations = append(report.Violations, validator.Validate(entry)...)

	report.Valid = len(report.Violations) == 0
	return report
}

// entryFromMetadata mirrors the server's request mapping so local
// validation sees the same typed metadata the pipeline would.
func entryFromMetadata(content string, metadata map[string]interface{}) domain.Entry {
	meta := domain.Metadata{Extra: map[string]interface{}{}}

	str := func(key string) string {
		v, _ := metadata[key].(string)
		return v
	}
	strs := func(key string) []string {
		raw, ok := metadata[key].([]interface{})
		if !ok {
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	meta.UniqueID = str("unique_id")
	meta.Type = domain.EntryType(str("type"))
	meta.Component = str("component")
	meta.Importance = domain.Importance(str("importance"))
	meta.CreatedAt = str("created_at")
	meta.Affects = strs("affects")
	meta.Keywords = strs("keywords")
	meta.RelatedIDs = strs("related_ids")
	meta.SupersededBy = str("superseded_by")
	if v, ok := metadata["confidence"].(float64); ok {
		meta.Confidence = v
	}
	if v, ok := metadata["version"].(float64); ok {
		meta.Version = int(v)
	}
	if v, ok := metadata["deprecated"].(bool); ok {
		meta.Deprecated = v
	}

	known := map[string]bool{
		"unique_id": true, "type": true, "component": true, "importance": true,
		"created_at": true, "content_hash": true, "affects": true, "keywords": true,
		"related_ids": true, "superseded_by": true, "confidence": true,
		"version": true, "deprecated": true,
	}
	for k, v := range metadata {
		if !known[k] {
			meta.Extra[k] = v
		}
	}

	return domain.Entry{Content: content, Metadata: meta}
}

func printValidationReport(report *ValidationReport) {
	if report.Valid {
		fmt.Printf("Valid: %s\n", report.UniqueID)
	} else {
		fmt.Printf("Invalid: %d violations\n", len(report.Violations))
		for _, v := range report.Violations {
			fmt.Printf("  %s: %s\n", v.Field, v.Message)
		}
	}
	for _, w := range report.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}
