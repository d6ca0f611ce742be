// Package embedding wraps the OpenAI embeddings API behind a small
// interface and enforces the configured vector dimension.
package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/recallkit/recallkit/internal/domain"
)

const (
	// DefaultModel is the embedding model used when none is configured
	DefaultModel = "text-embedding-3-small"
	// DefaultDimension is the vector width used when none is configured
	DefaultDimension = 384
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when no API key is configured
	ErrNoAPIKey = errors.New("embedding API key not configured")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client generates embeddings and verifies their dimension.
type Client struct {
	api       EmbeddingAPI
	dimension int
}

// OpenAIAdapter adapts the go-openai client to EmbeddingAPI.
type OpenAIAdapter struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

// NewOpenAIAdapter creates an adapter for the given model. For models
// that support requested dimensions, dimension is passed through to
// the API; otherwise the model's native width is returned and checked
// by the Client.
func NewOpenAIAdapter(apiKey, model string, dimension int) *OpenAIAdapter {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIAdapter{
		client:    openai.NewClient(apiKey),
		model:     openai.EmbeddingModel(model),
		dimension: dimension,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	}
	if a.dimension > 0 && supportsDimensions(a.model) {
		req.Dimensions = a.dimension
	}

	resp, err := a.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

func supportsDimensions(model openai.EmbeddingModel) bool {
	switch model {
	case openai.SmallEmbedding3, openai.LargeEmbedding3:
		return true
	}
	return false
}

// Config holds embedding client configuration.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
}

// NewClient creates an embedding client for the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Client{
		api:       NewOpenAIAdapter(cfg.APIKey, cfg.Model, dimension),
		dimension: dimension,
	}, nil
}

// NewClientWithAPI creates a Client over a custom EmbeddingAPI (for testing).
func NewClientWithAPI(api EmbeddingAPI, dimension int) *Client {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Client{api: api, dimension: dimension}
}

// Dimension returns the vector width this client enforces.
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed generates an embedding for the given text. API failures are
// transient collaborator errors; a dimension mismatch is permanent
// since retrying cannot fix a misconfigured model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vector, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, domain.NewTransientError("embedding provider", err)
	}

	if len(vector) != c.dimension {
		return nil, domain.NewPermanentError("embedding provider",
			fmt.Errorf("embedding has %d dimensions, expected %d", len(vector), c.dimension))
	}

	return vector, nil
}
