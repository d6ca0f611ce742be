package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "rk_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAPIClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(testKey, server.URL)
	require.NoError(t, err)

	resp, err := api.Get("/health")
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testKey, gotAuth)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"inventory record not found","code":"NOT_FOUND"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(testKey, server.URL)
	require.NoError(t, err)

	resp, err := api.Get("/inventory/missing")
	assert.Nil(t, resp)
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "inventory record not found", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "404 NOT_FOUND")
}

func TestAPIClient_ValidationErrorCarriesViolations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"entry validation failed","code":"VALIDATION","violations":[{"field":"content","message":"too short"}]}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(testKey, server.URL)
	require.NoError(t, err)

	_, err = api.Post("/entries", map[string]string{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	require.Len(t, apiErr.Violations, 1)
	assert.Equal(t, "content", apiErr.Violations[0].Field)
	assert.Equal(t, "too short", apiErr.Violations[0].Message)
}

func TestAPIClient_RejectedSubmissionReturnsData(t *testing.T) {
	// Rejections come back as 400 with the full result in data, not
	// as a bare error envelope. The client passes those through.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"data":{"status":"rejected","unique_id":"arch-1","violations":[{"field":"content","message":"too short"}]}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(testKey, server.URL)
	require.NoError(t, err)

	resp, err := api.Post("/entries", map[string]string{"content": "x"})
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Contains(t, string(resp.Data), `"rejected"`)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(testKey, server.URL)
	require.NoError(t, err)

	_, err = api.Get("/entries")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream unavailable")
}
