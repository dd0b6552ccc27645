package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/fallback"
	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/local"
	anthropicllm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/failover"
	vectormemory "github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/core/domain"
)

// qdrantStub answers the calls qdrant.NewStore makes on startup.
type qdrantStub struct {
	mu          sync.Mutex
	collections map[string]bool
}

func newQdrantServer(t *testing.T) *httptest.Server {
	t.Helper()
	stub := &qdrantStub{collections: make(map[string]bool)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case r.Method == http.MethodGet && len(parts) == 1:
			_, _ = w.Write([]byte(`{"result":{"collections":[]}}`))
		case r.Method == http.MethodGet && len(parts) == 2:
			if !stub.collections[parts[1]] {
				http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"result":{}}`))
		case r.Method == http.MethodPut && len(parts) == 2:
			stub.collections[parts[1]] = true
			_, _ = w.Write([]byte(`{"result":true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func localSettings() *domain.Settings {
	s := domain.DefaultSettings()
	return &s
}

func TestServices_CloseWithNilServices(t *testing.T) {
	s := &Services{}
	assert.NoError(t, s.Close())
}

func TestBuild_LocalDefaults(t *testing.T) {
	svc, err := Build(context.Background(), localSettings())
	require.NoError(t, err)
	defer svc.Close()

	assert.IsType(t, &local.EmbeddingService{}, svc.Embedder)
	assert.Equal(t, domain.DefaultDimensions, svc.Embedder.Dimensions())
	assert.Nil(t, svc.LLM)
	assert.Same(t, svc.Mirror, svc.Store)
	assert.Nil(t, svc.Failover)
	assert.Empty(t, svc.Warnings)
}

func TestBuild_QdrantReachable(t *testing.T) {
	srv := newQdrantServer(t)
	settings := localSettings()
	settings.Store = domain.StoreSettings{
		Backend:      domain.StoreQdrant,
		URL:          srv.URL,
		Collection:   "quarry",
		ProbeTimeout: time.Second,
	}

	svc, err := Build(context.Background(), settings)
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Failover)
	assert.IsType(t, &failover.Store{}, svc.Store)
	assert.False(t, svc.Failover.Downgraded())
	assert.Equal(t, domain.DefaultDimensions, svc.Store.Dimensions())
	assert.Empty(t, svc.Warnings)
}

func TestBuild_QdrantUnreachableFallsBackToMemory(t *testing.T) {
	settings := localSettings()
	settings.Store = domain.StoreSettings{
		Backend:      domain.StoreQdrant,
		URL:          deadURL(t),
		ProbeTimeout: 200 * time.Millisecond,
	}

	svc, err := Build(context.Background(), settings)
	require.NoError(t, err)
	defer svc.Close()

	assert.IsType(t, &vectormemory.Store{}, svc.Store)
	assert.Nil(t, svc.Failover)
	require.Len(t, svc.Warnings, 1)
	assert.Contains(t, svc.Warnings[0], "qdrant unavailable")
}

func TestBuild_LLMWithoutKeyWarns(t *testing.T) {
	settings := localSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOpenAI}

	svc, err := Build(context.Background(), settings)
	require.NoError(t, err)
	defer svc.Close()

	assert.Nil(t, svc.LLM)
	require.Len(t, svc.Warnings, 1)
	assert.Contains(t, svc.Warnings[0], "extractive")
}

func TestBuild_EmbeddingErrorIsFatal(t *testing.T) {
	settings := localSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, Dimensions: 1536}

	_, err := Build(context.Background(), settings)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestBuild_EmbeddingDimensionMismatchIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	t.Cleanup(srv.Close)

	settings := localSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		BaseURL:    srv.URL,
		Dimensions: 4,
	}

	_, err := Build(context.Background(), settings)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestBuild_EmbeddingUnreachableFallsBack(t *testing.T) {
	settings := localSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		BaseURL:    deadURL(t),
		Dimensions: 4,
	}

	svc, err := Build(context.Background(), settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	assert.IsType(t, &fallback.EmbeddingService{}, svc.Embedder)

	vec, err := svc.Embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.EmbeddingSettings
		wantDims int
		wantType any
		wantErr  error
	}{
		{
			name:     "empty settings use local default",
			settings: domain.EmbeddingSettings{},
			wantDims: domain.DefaultDimensions,
			wantType: &local.EmbeddingService{},
		},
		{
			name:     "local honours dimensions",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderLocal, Dimensions: 128},
			wantDims: 128,
			wantType: &local.EmbeddingService{},
		},
		{
			name:     "ollama wrapped with fallback",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Dimensions: 768},
			wantDims: 768,
			wantType: &fallback.EmbeddingService{},
		},
		{
			name:     "openai wrapped with fallback",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Dimensions: 512},
			wantDims: 512,
			wantType: &fallback.EmbeddingService{},
		},
		{
			name:     "openai without key",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrConfig,
		},
		{
			name:     "anthropic has no embeddings",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic},
			wantErr:  domain.ErrConfig,
		},
		{
			name:     "unknown provider",
			settings: domain.EmbeddingSettings{Provider: "cohere"},
			wantErr:  domain.ErrConfig,
		},
		{
			name:     "gemini without key",
			settings: domain.EmbeddingSettings{Provider: domain.AIProviderGemini},
			wantErr:  domain.ErrConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(context.Background(), tt.settings)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.IsType(t, tt.wantType, svc)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.LLMSettings
		wantNil  bool
		wantType any
		wantErr  bool
	}{
		{name: "unconfigured", settings: domain.LLMSettings{}, wantNil: true},
		{name: "local has no generator", settings: domain.LLMSettings{Provider: domain.AIProviderLocal}, wantNil: true},
		{name: "openai without key", settings: domain.LLMSettings{Provider: domain.AIProviderOpenAI}, wantNil: true},
		{
			name:     "ollama",
			settings: domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3"},
			wantType: &ollamallm.LLMService{},
		},
		{
			name:     "openai",
			settings: domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantType: &openaillm.LLMService{},
		},
		{
			name:     "anthropic",
			settings: domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantType: &anthropicllm.LLMService{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(context.Background(), tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			defer svc.Close()
			assert.IsType(t, tt.wantType, svc)
		})
	}
}
