//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recallkit/recallkit/internal/api/handlers"
	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/quality"
	"github.com/recallkit/recallkit/internal/repository"
	"github.com/recallkit/recallkit/internal/schema"
	"github.com/recallkit/recallkit/internal/server"
	"github.com/recallkit/recallkit/internal/service"
	"github.com/recallkit/recallkit/internal/testutil"
	"github.com/recallkit/recallkit/internal/vectorstore"
)

const (
	e2eAPIKey    = "rk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	e2eDimension = 64
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Embedder     *fixedEmbedder
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database
// container and an HTTP server wired like production, minus the
// OpenAI collaborator.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	embedder := newFixedEmbedder()
	serverURL, serverCloser := startServer(t, pool, embedder, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Embedder:     embedder,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, int, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, int, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request with an optional body
func (e *E2ETestEnv) Delete(path string, body interface{}, authToken string) (*APIResponse, int, error) {
	return e.doRequest("DELETE", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return &apiResp, resp.StatusCode, nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, embedder *fixedEmbedder, port int) (string, func()) {
	ctx := context.Background()

	cfg := &config.Config{
		KnowledgeCollection:     "knowledge",
		BestPracticesCollection: "best-practices",
		EmbeddingDimension:      e2eDimension,
		MinContentLength:        quality.DefaultMinContentLength,
		MaxContentLength:        quality.DefaultMaxContentLength,
		SimilarityThreshold:     0.85,
		AutoSkipThreshold:       0.95,
		UpdateStrategy:          string(config.UpdateStrategyVersioned),
		StaleAfterDays:          90,
	}

	store := vectorstore.NewPGStore(pool)
	for _, collection := range cfg.Collections() {
		if err := store.EnsureCollection(ctx, collection, cfg.EmbeddingDimension); err != nil {
			t.Fatalf("failed to ensure collection %s: %v", collection, err)
		}
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

	routerCfg := server.RouterConfig{
		APIKey:           e2eAPIKey,
		EntriesHandler:   handlers.NewEntriesHandler(pipeline, deprecationSvc),
		InventoryHandler: handlers.NewInventoryHandler(inventorySvc),
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// fixedEmbedder generates deterministic vectors without the OpenAI
// collaborator. Unregistered content hashes to an effectively random
// unit vector; tests register vectors when they need controlled
// similarity.
type fixedEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
}

func newFixedEmbedder() *fixedEmbedder {
	return &fixedEmbedder{vectors: make(map[string][]float32)}
}

// Set registers the vector returned for the given content.
func (f *fixedEmbedder) Set(content string, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[content] = padVector(vector)
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	if v, ok := f.vectors[text]; ok {
		f.mu.Unlock()
		return v, nil
	}
	f.mu.Unlock()

	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, e2eDimension)
	for i := range vector {
		vector[i] = float32(hash[i%len(hash)])/255.0 - 0.5
		if i >= len(hash) {
			vector[i] = -vector[i]
		}
	}
	return normalize(vector), nil
}

// padVector extends a short vector to the collection dimension.
func padVector(v []float32) []float32 {
	out := make([]float32, e2eDimension)
	copy(out, v)
	return normalize(out)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
