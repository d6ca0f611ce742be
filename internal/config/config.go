package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/recallkit/recallkit/internal/domain"
)

// UpdateStrategy selects how unique_id collisions are resolved.
type UpdateStrategy string

const (
	// UpdateStrategyVersioned stores a new versioned record and
	// deprecates the prior one with a superseded_by link.
	UpdateStrategyVersioned UpdateStrategy = "versioned"
	// UpdateStrategyInPlace overwrites the existing record under the
	// same unique_id and increments its version.
	UpdateStrategyInPlace UpdateStrategy = "in_place"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	KnowledgeCollection     string `envconfig:"KNOWLEDGE_COLLECTION" default:"knowledge"`
	BestPracticesCollection string `envconfig:"BEST_PRACTICES_COLLECTION" default:"best-practices"`

	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"384"`

	MinContentLength int `envconfig:"MIN_CONTENT_LENGTH" default:"100"`
	MaxContentLength int `envconfig:"MAX_CONTENT_LENGTH" default:"50000"`

	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
	AutoSkipThreshold   float64 `envconfig:"AUTO_SKIP_THRESHOLD" default:"0.95"`

	UpdateStrategy string `envconfig:"UPDATE_STRATEGY" default:"versioned"`

	StaleAfterDays     int `envconfig:"STALE_AFTER_DAYS" default:"90"`
	ReviewIntervalMins int `envconfig:"REVIEW_INTERVAL_MINUTES" default:"60"`

	APIKey    string `envconfig:"API_KEY"`
	SentryDSN string `envconfig:"SENTRY_DSN"`
}

// modelDimensions lists the native output widths of embedding models
// we know about. Models supporting requested dimensions (the
// text-embedding-3 family) can be truncated below their native width.
var modelDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// truncatableModels can produce embeddings narrower than their native
// width via the dimensions request parameter.
var truncatableModels = map[string]bool{
	"text-embedding-3-small": true,
	"text-embedding-3-large": true,
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RECALL", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate enforces startup invariants. Any failure here is fatal:
// the service refuses to start rather than misroute or corrupt data.
func (c *Config) Validate() error {
	if c.MinContentLength <= 0 {
		return domain.NewConfigurationError("MIN_CONTENT_LENGTH", "must be positive")
	}
	if c.MaxContentLength <= c.MinContentLength {
		return domain.NewConfigurationError("MAX_CONTENT_LENGTH",
			fmt.Sprintf("must exceed MIN_CONTENT_LENGTH (%d)", c.MinContentLength))
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold >= 1 {
		return domain.NewConfigurationError("SIMILARITY_THRESHOLD", "must be in (0, 1)")
	}
	if c.AutoSkipThreshold < c.SimilarityThreshold || c.AutoSkipThreshold > 1 {
		return domain.NewConfigurationError("AUTO_SKIP_THRESHOLD",
			fmt.Sprintf("must be in [%.2f, 1]", c.SimilarityThreshold))
	}
	if c.EmbeddingDimension <= 0 {
		return domain.NewConfigurationError("EMBEDDING_DIMENSION", "must be positive")
	}
	if c.KnowledgeCollection == "" || c.BestPracticesCollection == "" {
		return domain.NewConfigurationError("KNOWLEDGE_COLLECTION", "collection names cannot be empty")
	}
	if c.KnowledgeCollection == c.BestPracticesCollection {
		return domain.NewConfigurationError("BEST_PRACTICES_COLLECTION",
			"must differ from KNOWLEDGE_COLLECTION")
	}
	if c.StaleAfterDays <= 0 {
		return domain.NewConfigurationError("STALE_AFTER_DAYS", "must be positive")
	}

	switch UpdateStrategy(c.UpdateStrategy) {
	case UpdateStrategyVersioned, UpdateStrategyInPlace:
	default:
		return domain.NewConfigurationError("UPDATE_STRATEGY", "must be 'versioned' or 'in_place'")
	}

	if native, known := modelDimensions[c.EmbeddingModel]; known {
		if c.EmbeddingDimension > native {
			return domain.NewConfigurationError("EMBEDDING_DIMENSION",
				fmt.Sprintf("%s produces %d dimensions, cannot request %d", c.EmbeddingModel, native, c.EmbeddingDimension))
		}
		if c.EmbeddingDimension != native && !truncatableModels[c.EmbeddingModel] {
			return domain.NewConfigurationError("EMBEDDING_DIMENSION",
				fmt.Sprintf("%s produces exactly %d dimensions", c.EmbeddingModel, native))
		}
	}

	return nil
}

// CollectionFor routes an entry type to its target collection.
// best_practice has its own collection; every other type shares the
// knowledge collection.
func (c *Config) CollectionFor(t domain.EntryType) string {
	if t == domain.EntryTypeBestPractice {
		return c.BestPracticesCollection
	}
	return c.KnowledgeCollection
}

// Collections returns every configured collection name.
func (c *Config) Collections() []string {
	return []string{c.KnowledgeCollection, c.BestPracticesCollection}
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasAPIKey() bool {
	return c.APIKey != ""
}
