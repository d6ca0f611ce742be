package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/domain"
)

// SubmitEntryRequest represents the submit entry API request.
type SubmitEntryRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	Decision string                 `json:"decision,omitempty"`
}

// SubmitResult represents the submit entry API response.
type SubmitResult struct {
	Status     string             `json:"status"`
	UniqueID   string             `json:"unique_id"`
	PointID    string             `json:"point_id,omitempty"`
	Collection string             `json:"collection,omitempty"`
	Hash       string             `json:"content_hash,omitempty"`
	Version    int                `json:"version,omitempty"`
	MatchID    string             `json:"match_id,omitempty"`
	Score      float64            `json:"score,omitempty"`
	Violations []domain.Violation `json:"violations,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// BatchResult represents a single result in a batch operation.
type BatchResult struct {
	UniqueID string  `json:"unique_id,omitempty"`
	Status   string  `json:"status"`
	MatchID  string  `json:"match_id,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// BatchResponse represents the response for a batch operation.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
	Total   int           `json:"total"`
	Stored  int           `json:"stored"`
	Skipped int           `json:"skipped"`
	Pending int           `json:"pending"`
	Failed  int           `json:"failed"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		file     string
		decision string
		batch    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit entries from stdin or file",
		Long: `Submit entries from JSON input (stdin or file).

Each entry is an object with "content" and "metadata". Near-duplicate
submissions come back with status near_duplicate_needs_decision; re-run
with --decision store|skip|update to resolve them.

Examples:
  # Submit a single entry from a file
  recall add --file entry.json

  # Submit from stdin
  cat entry.json | recall add

  # Resolve a near duplicate by storing anyway
  recall add --file entry.json --decision store

  # Batch submit from JSONL (one entry per line)
  cat entries.jsonl | recall add --batch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if batch {
				return runBatchAdd(cmd, file, decision, outputJSON)
			}
			return runAdd(cmd, file, decision, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (JSON entry)")
	cmd.Flags().StringVarP(&decision, "decision", "d", "", "Near-duplicate decision (store, skip, update)")
	cmd.Flags().BoolVar(&batch, "batch", false, "Batch mode (expects JSONL input, one entry per line)")

	return cmd
}

func runAdd(cmd *cobra.Command, file, decision string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	input, err := readInput(file)
	if err != nil {
		return err
	}

	req, err := parseEntry(input, decision)
	if err != nil {
		return err
	}

	result, err := submitEntry(api, req)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		if result.Status == "rejected" {
			return fmt.Errorf("entry rejected with %d violations", len(result.Violations))
		}
		return nil
	}

	printResult(result)
	if result.Status == "rejected" {
		return fmt.Errorf("entry rejected with %d violations", len(result.Violations))
	}
	return nil
}

// submitEntry posts one entry. Rejections arrive as a 400 whose data
// payload still carries the full result, so both paths land here.
func submitEntry(api *APIClient, req SubmitEntryRequest) (*SubmitResult, error) {
	resp, err := api.Post("/entries", req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Violations) > 0 {
			return &SubmitResult{
				Status:     "rejected",
				Violations: apiErr.Violations,
			}, nil
		}
		return nil, fmt.Errorf("failed to submit entry: %w", err)
	}

	var result SubmitResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

func parseEntry(input []byte, decision string) (SubmitEntryRequest, error) {
	var req SubmitEntryRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return req, fmt.Errorf("failed to parse JSON input: %w", err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return req, fmt.Errorf("content is required")
	}
	if len(req.Metadata) == 0 {
		return req, fmt.Errorf("metadata is required")
	}
	if decision != "" {
		req.Decision = decision
	}
	switch req.Decision {
	case "", "store", "skip", "update":
	default:
		return req, fmt.Errorf("invalid decision %q (expected store, skip or update)", req.Decision)
	}
	return req, nil
}

func readInput(file string) ([]byte, error) {
	var input []byte
	var err error
	if file != "" {
		input, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	} else {
		input, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("no input provided")
	}
	return input, nil
}

func printResult(result *SubmitResult) {
	switch result.Status {
	case "stored":
		fmt.Printf("Stored: %s (version %d)\n", result.UniqueID, result.Version)
		fmt.Printf("Collection: %s\n", result.Collection)
	case "updated":
		fmt.Printf("Updated: %s (version %d)\n", result.UniqueID, result.Version)
		fmt.Printf("Collection: %s\n", result.Collection)
	case "skipped_exact_duplicate":
		fmt.Printf("Skipped: %s is an exact duplicate of %s\n", result.UniqueID, result.MatchID)
	case "skipped_near_duplicate":
		fmt.Printf("Skipped: %s is a near duplicate of %s (score %.3f)\n",
			result.UniqueID, result.MatchID, result.Score)
	case "near_duplicate_needs_decision":
		fmt.Printf("Needs decision: %s resembles %s (score %.3f)\n",
			result.UniqueID, result.MatchID, result.Score)
		fmt.Println("Re-run with --decision store|skip|update to resolve")
	case "rejected":
		fmt.Printf("Rejected: %d violations\n", len(result.Violations))
		for _, v := range result.Violations {
			fmt.Printf("  %s: %s\n", v.Field, v.Message)
		}
	default:
		fmt.Printf("Status: %s\n", result.Status)
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

// runBatchAdd processes JSONL input line by line.
func runBatchAdd(cmd *cobra.Command, file, decision string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var reader io.Reader
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	scanner := bufio.NewScanner(reader)
	const maxScanTokenSize = 5 * 1024 * 1024
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)

	response := BatchResponse{Results: make([]BatchResult, 0)}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lineNum++
		response.Total++

		req, err := parseEntry([]byte(line), decision)
		if err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("line %d: %v", lineNum, err),
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: %v\n", lineNum, err)
			}
			continue
		}

		uniqueID, _ := req.Metadata["unique_id"].(string)

		result, err := submitEntry(api, req)
		if err != nil {
			response.Results = append(response.Results, BatchResult{
				UniqueID: uniqueID,
				Status:   "failed",
				Error:    err.Error(),
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Line %d: %v\n", lineNum, err)
			}
			continue
		}

		response.Results = append(response.Results, BatchResult{
			UniqueID: result.UniqueID,
			Status:   result.Status,
			MatchID:  result.MatchID,
			Score:    result.Score,
		})

		switch result.Status {
		case "stored", "updated":
			response.Stored++
		case "skipped_exact_duplicate", "skipped_near_duplicate":
			response.Skipped++
		case "near_duplicate_needs_decision":
			response.Pending++
		case "rejected":
			response.Failed++
		}

		if !outputJSON {
			fmt.Printf("Line %d: %s %s\n", lineNum, result.Status, result.UniqueID)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	if response.Total == 0 {
		return fmt.Errorf("no entries provided")
	}

	if outputJSON {
		output, _ := json.MarshalIndent(response, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\nBatch complete: %d stored, %d skipped, %d pending decision, %d failed out of %d total\n",
			response.Stored, response.Skipped, response.Pending, response.Failed, response.Total)
	}

	if response.Failed > 0 {
		return fmt.Errorf("batch completed with %d failures", response.Failed)
	}

	return nil
}
