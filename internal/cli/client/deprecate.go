package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

type deprecateRequest struct {
	SupersededBy string `json:"superseded_by,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// DeprecateCmd creates the deprecate command.
func DeprecateCmd() *cobra.Command {
	var (
		supersededBy string
		reason       string
	)

	cmd := &cobra.Command{
		Use:   "deprecate <unique-id>",
		Short: "Retire an entry from search results",
		Long: `Mark an entry as deprecated. Its stored points stop appearing in
duplicate checks and its ledger record is retired. The content itself
is retained for audit.

Examples:
  recall deprecate arch-decision-caching-2024 --reason "superseded by new design"
  recall deprecate arch-decision-caching-2024 --superseded-by arch-decision-caching-2025`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			var body interface{}
			if supersededBy != "" || reason != "" {
				body = deprecateRequest{SupersededBy: supersededBy, Reason: reason}
			}

			resp, err := api.Delete("/entries/"+url.PathEscape(args[0]), body)
			if err != nil {
				return fmt.Errorf("failed to deprecate entry: %w", err)
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

			fmt.Printf("Deprecated: %s\n", rec.UniqueID)
			if rec.SupersededBy != "" {
				fmt.Printf("Superseded by: %s\n", rec.SupersededBy)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&supersededBy, "superseded-by", "", "Unique ID of the replacing entry")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the entry is being retired")

	return cmd
}
