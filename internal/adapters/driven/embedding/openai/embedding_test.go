package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		model    string
		override int
		expected int
	}{
		{model: "", expected: 1536},
		{model: "text-embedding-3-large", expected: 3072},
		{model: "text-embedding-3-small", override: 384, expected: 384},
		{model: "custom-model", expected: 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			s, err := NewEmbeddingService(Config{APIKey: "k", Model: tt.model, Dimensions: tt.override})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Dimensions())
		})
	}
}

func newTestServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Dimensions)

		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		var data []item
		// Reverse order to exercise index placement.
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float64{float64(i), 1}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestEmbedBatch_OrdersByIndexAndBatches(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, &calls)
	defer srv.Close()

	s, err := NewEmbeddingService(Config{
		APIKey:            "test-key",
		BaseURL:           srv.URL,
		Dimensions:        2,
		BatchSize:         2,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	out, err := s.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{0, 1}, out[0])
	assert.Equal(t, []float32{1, 1}, out[1])
	assert.Equal(t, []float32{0, 1}, out[2])
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer srv.Close()

	s, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestEmbed_CancelledContext(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Embed(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
