package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/cli"
	"github.com/recallkit/recallkit/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "recall",
		Short: "Recall CLI - Validated knowledge capture for AI agents",
		Long: `Recall CLI submits, validates and manages knowledge entries.

Environment variables:
  RECALL_API_KEY   API key for authentication (required)
  RECALL_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.ValidateCmd())
	rootCmd.AddCommand(client.InventoryCmd())
	rootCmd.AddCommand(client.DeprecateCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
