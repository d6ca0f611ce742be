package admin

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

// CollectionsCmd returns the collections command group
func CollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage vector collections",
	}

	cmd.AddCommand(collectionsEnsureCmd())
	cmd.AddCommand(collectionsStatsCmd())

	return cmd
}

func collectionsEnsureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the configured collections if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, store *vectorstore.PGStore) error {
				for _, collection := range cfg.Collections() {
					if err := store.EnsureCollection(ctx, collection, cfg.EmbeddingDimension); err != nil {
						return fmt.Errorf("failed to ensure collection %s: %w", collection, err)
					}
					fmt.Printf("collection %s ready (dimension %d)\n", collection, cfg.EmbeddingDimension)
				}
				return nil
			})
		},
	}
}

func collectionsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show point counts per collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, cfg *config.Config, store *vectorstore.PGStore) error {
				for _, collection := range cfg.Collections() {
					count, err := store.Count(ctx, collection)
					if err != nil {
						return fmt.Errorf("failed to count collection %s: %w", collection, err)
					}
					fmt.Printf("%s: %d points\n", collection, count)
				}
				return nil
			})
		},
	}
}

func withStore(fn func(context.Context, *config.Config, *vectorstore.PGStore) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, vectorstore.NewPGStore(pool))
}
