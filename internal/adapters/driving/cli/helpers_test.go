package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/quarry/internal/adapters/driven/storage/memory"
	vectormemory "github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/services"
	"github.com/custodia-labs/quarry/internal/postprocessors/chunker"
)

const testDimensions = 64

// fakeTools serves canned items per provider.
type fakeTools struct {
	items  map[string][]domain.ToolItem
	raw    json.RawMessage
	calls  []string
	status []domain.ToolServerStatus
}

func (f *fakeTools) CallTool(_ context.Context, provider, tool string, _ map[string]any) (json.RawMessage, error) {
	f.calls = append(f.calls, provider+"/"+tool)
	if f.raw != nil {
		return f.raw, nil
	}
	items, ok := f.items[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	return json.Marshal(map[string]any{"items": items})
}

func (f *fakeTools) ListTools(_ context.Context, provider string) ([]domain.ToolInfo, error) {
	if _, ok := f.items[provider]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	return []domain.ToolInfo{
		{Name: driven.ToolFetchItems, Description: "Recent items"},
		{Name: driven.ToolLiveItems, Description: "Items matching a query"},
	}, nil
}

func (f *fakeTools) Status() []domain.ToolServerStatus {
	return f.status
}

// newTestApp wires in-memory services around tools.
func newTestApp(t *testing.T, tools *fakeTools) *App {
	t.Helper()

	settings := domain.DefaultSettings()
	settings.Embedding.Dimensions = testDimensions

	embedder := local.NewEmbeddingService(testDimensions)
	store, err := vectormemory.NewStore(testDimensions)
	require.NoError(t, err)

	docs := memory.NewDocumentStore()
	history := memory.NewHistoryStore()
	states := memory.NewSyncStateStore()

	ingest := services.NewIngestService(docs, store, embedder,
		chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20)))
	query := services.NewQueryService(embedder, store, nil, history)
	query.SetToolCaller(tools)

	return &App{
		Settings:   &settings,
		Config:     services.NewSettingsService(memory.NewConfigStore(nil)),
		Query:      query,
		Ingest:     ingest,
		Aggregator: services.NewAggregator(tools, ingest, docs, states, 10),
		History:    services.NewHistoryService(history),
		Tools:      tools,
	}
}

// setupTestApp installs a test app for the duration of the test.
func setupTestApp(t *testing.T, tools *fakeTools) *App {
	t.Helper()
	if tools == nil {
		tools = &fakeTools{}
	}
	a := newTestApp(t, tools)
	app = a
	ownApp = false
	t.Cleanup(func() { app = nil })
	return a
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores flag defaults so package-level flag variables do not
// leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func ingestText(t *testing.T, a *App, id, title, content string) {
	t.Helper()
	_, err := a.Ingest.Ingest(context.Background(), domain.Document{ID: id, Title: title, Content: content})
	require.NoError(t, err)
}
