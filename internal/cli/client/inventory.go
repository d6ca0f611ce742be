package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// InventoryRecord represents a ledger record from the API.
type InventoryRecord struct {
	UniqueID          string `json:"unique_id"`
	Type              string `json:"type"`
	Component         string `json:"component"`
	Importance        string `json:"importance"`
	ContentHash       string `json:"content_hash"`
	Version           int    `json:"version"`
	Deprecated        bool   `json:"deprecated"`
	SupersededBy      string `json:"superseded_by,omitempty"`
	DeprecationReason string `json:"deprecation_reason,omitempty"`
	CreatedAt         string `json:"created_at"`
	StoredAt          string `json:"stored_at"`
	UpdatedAt         string `json:"updated_at"`
}

// InventorySummary aggregates the ledger by type, importance and component.
type InventorySummary struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	Deprecated   int            `json:"deprecated"`
	ByType       map[string]int `json:"by_type"`
	ByImportance map[string]int `json:"by_importance"`
	ByComponent  map[string]int `json:"by_component"`
}

// InventoryPage is one page of ledger records.
type InventoryPage struct {
	Items   []InventoryRecord `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

// InventoryCmd creates the inventory command group.
func InventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect the knowledge inventory ledger",
	}

	cmd.AddCommand(inventoryListCmd())
	cmd.AddCommand(inventorySummaryCmd())
	cmd.AddCommand(inventoryStaleCmd())
	cmd.AddCommand(inventoryGetCmd())

	return cmd
}

func inventoryListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inventory records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			query.Set("limit", fmt.Sprintf("%d", limit))
			if cursor != "" {
				query.Set("cursor", cursor)
			}

			resp, err := api.Get("/inventory?" + query.Encode())
			if err != nil {
				return fmt.Errorf("failed to list inventory: %w", err)
			}

			var page InventoryPage
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(page, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			for _, rec := range page.Items {
				printRecordLine(rec)
			}
			if page.HasMore {
				fmt.Printf("\nMore records available: --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records per page")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from a previous page")

	return cmd
}

func inventorySummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate counts for the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/inventory/summary")
			if err != nil {
				return fmt.Errorf("failed to get summary: %w", err)
			}

			var summary InventorySummary
			if err := json.Unmarshal(resp.Data, &summary); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(summary, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Total: %d (%d active, %d deprecated)\n",
				summary.Total, summary.Active, summary.Deprecated)
			printCountMap("By type", summary.ByType)
			printCountMap("By importance", summary.ByImportance)
			printCountMap("By component", summary.ByComponent)
			return nil
		},
	}
}

func inventoryStaleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List active records past the staleness cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/inventory/stale")
			if err != nil {
				return fmt.Errorf("failed to list stale records: %w", err)
			}

			var records []InventoryRecord
			if err := json.Unmarshal(resp.Data, &records); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(records, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(records) == 0 {
				fmt.Println("No stale records")
				return nil
			}
			for _, rec := range records {
				fmt.Printf("%s  %s  last updated %s\n", rec.UniqueID, rec.Type, rec.UpdatedAt)
			}
			return nil
		},
	}
}

func inventoryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <unique-id>",
		Short: "Show a single inventory record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/inventory/" + url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			var rec InventoryRecord
			if err := json.Unmarshal(resp.Data, &rec); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(rec, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("ID: %s\n", rec.UniqueID)
			fmt.Printf("Type: %s\n", rec.Type)
			fmt.Printf("Component: %s\n", rec.Component)
			fmt.Printf("Importance: %s\n", rec.Importance)
			fmt.Printf("Version: %d\n", rec.Version)
			fmt.Printf("Hash: %s\n", rec.ContentHash)
			fmt.Printf("Updated: %s\n", rec.UpdatedAt)
			if rec.Deprecated {
				fmt.Println("Deprecated: yes")
				if rec.SupersededBy != "" {
					fmt.Printf("Superseded by: %s\n", rec.SupersededBy)
				}
				if rec.DeprecationReason != "" {
					fmt.Printf("Reason: %s\n", rec.DeprecationReason)
				}
			}
			return nil
		},
	}
}

func printRecordLine(rec InventoryRecord) {
	status := "active"
	if rec.Deprecated {
		status = "deprecated"
	}
	fmt.Printf("%s  %s  v%d  %s  %s\n", rec.UniqueID, rec.Type, rec.Version, status, rec.UpdatedAt)
}

func printCountMap(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for key, count := range counts {
		fmt.Printf("  %s: %d\n", key, count)
	}
}
