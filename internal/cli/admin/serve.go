package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/recallkit/recallkit/internal/api/handlers"
	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/embedding"
	"github.com/recallkit/recallkit/internal/jobs"
	"github.com/recallkit/recallkit/internal/quality"
	"github.com/recallkit/recallkit/internal/repository"
	"github.com/recallkit/recallkit/internal/schema"
	"github.com/recallkit/recallkit/internal/server"
	"github.com/recallkit/recallkit/internal/service"
	"github.com/recallkit/recallkit/internal/telemetry"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the recall API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store := vectorstore.NewPGStore(pool)
	for _, collection := range cfg.Collections() {
		if err := store.EnsureCollection(ctx, collection, cfg.EmbeddingDimension); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", collection, err)
		}
	}
	log.Printf("collections ready: %v", cfg.Collections())

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required: the pipeline cannot run without embeddings")
	}
	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}

	inventoryRepo := repository.NewInventoryRepository(pool)
	inventorySvc := service.NewInventoryService(inventoryRepo, cfg.StaleAfterDays)

	checker := service.NewDuplicateChecker(store, cfg.SimilarityThreshold, cfg.AutoSkipThreshold)
	router := service.NewStorageRouter(store, cfg)
	pipeline := service.NewPipeline(
		schema.NewValidator(),
		quality.NewGate(cfg.MinContentLength, cfg.MaxContentLength),
		checker,
		router,
		inventorySvc,
		embedder,
	)
	deprecationSvc := service.NewDeprecationService(store, router, inventorySvc)
	reviewSvc := service.NewReviewService(inventorySvc)

	reviewWorker := jobs.NewWorker("review", jobs.NewReviewWorker(reviewSvc),
		time.Duration(cfg.ReviewIntervalMins)*time.Minute)
	go reviewWorker.Start(ctx)

	routerCfg := server.RouterConfig{
		APIKey:           cfg.APIKey,
		EntriesHandler:   handlers.NewEntriesHandler(pipeline, deprecationSvc),
		InventoryHandler: handlers.NewInventoryHandler(inventorySvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	reviewWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives a database/sql connection, not the pool
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
