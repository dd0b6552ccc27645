package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/quarry/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/postprocessors/chunker"
)

const testDimensions = 64

// --- Mock implementations ---

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastPrompt string
	lastOpts   driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPrompt = prompt
	m.lastOpts = opts
	return m.response, m.err
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockTools implements driven.ToolCaller for testing.
type mockTools struct {
	mu      sync.Mutex
	results map[string]string
	errs    map[string]error
	calls   []toolCall
}

type toolCall struct {
	provider string
	tool     string
	args     map[string]any
}

func newMockTools() *mockTools {
	return &mockTools{results: make(map[string]string), errs: make(map[string]error)}
}

func (m *mockTools) CallTool(_ context.Context, provider, tool string, args map[string]any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, toolCall{provider: provider, tool: tool, args: args})
	if err := m.errs[provider]; err != nil {
		return nil, err
	}
	res, ok := m.results[provider+"/"+tool]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return json.RawMessage(res), nil
}

func (m *mockTools) ListTools(context.Context, string) ([]domain.ToolInfo, error) { return nil, nil }
func (m *mockTools) Status() []domain.ToolServerStatus                            { return nil }

func (m *mockTools) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// stubStore implements driven.VectorStore with canned hits.
type stubStore struct {
	hits      []domain.VectorHit
	searchErr error
	lastMax   int
}

func (s *stubStore) Add(context.Context, []domain.VectorRecord) error { return nil }
func (s *stubStore) Remove(context.Context, string) error             { return nil }
func (s *stubStore) Dimensions() int                                  { return testDimensions }
func (s *stubStore) Close() error                                     { return nil }

func (s *stubStore) Search(_ context.Context, _ []float32, _ domain.SearchFilter, max int) ([]domain.VectorHit, error) {
	s.lastMax = max
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if max < len(s.hits) {
		return s.hits[:max], nil
	}
	return s.hits, nil
}

// failingEmbedder implements driven.EmbeddingService and always fails.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}
func (failingEmbedder) Dimensions() int              { return testDimensions }
func (failingEmbedder) ModelName() string            { return "failing" }
func (failingEmbedder) Ping(_ context.Context) error { return domain.ErrEmbeddingUnavailable }
func (failingEmbedder) Close() error                 { return nil }

// failingHistory implements driven.HistoryStore and rejects writes.
type failingHistory struct {
	*memory.HistoryStore
}

func (failingHistory) Save(context.Context, *domain.QueryRecord) error {
	return errors.New("disk full")
}

// fixedPrompts implements driven.PromptStore.
type fixedPrompts map[string]string

func (p fixedPrompts) Load(name string) (string, error) {
	if s, ok := p[name]; ok {
		return s, nil
	}
	return "", domain.ErrNotFound
}

func (fixedPrompts) Reload() {}

func hit(id, docID, text string, similarity float64) domain.VectorHit {
	return domain.VectorHit{
		Record: domain.VectorRecord{
			ID:       id,
			Text:     text,
			Metadata: map[string]any{domain.MetaDocumentID: docID, domain.MetaTitle: "Title " + docID},
		},
		Similarity: similarity,
	}
}

// --- Fixture wiring real in-memory adapters ---

type fixture struct {
	docs     *memory.DocumentStore
	history  *memory.HistoryStore
	states   *memory.SyncStateStore
	vectors  *vectormemory.Store
	embedder *local.EmbeddingService
	ingest   *IngestService
	query    *QueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vectors, err := vectormemory.NewStore(testDimensions)
	require.NoError(t, err)

	f := &fixture{
		docs:     memory.NewDocumentStore(),
		history:  memory.NewHistoryStore(),
		states:   memory.NewSyncStateStore(),
		vectors:  vectors,
		embedder: local.NewEmbeddingService(testDimensions),
	}
	f.ingest = NewIngestService(f.docs, f.vectors, f.embedder, chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20)))
	f.query = NewQueryService(f.embedder, f.vectors, nil, f.history)
	f.query.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return f
}
