package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/quarry/internal/adapters/driven/ai"
	"github.com/custodia-labs/quarry/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quarry/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/quarry/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quarry/internal/adapters/driven/toolproc"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/core/services"
	"github.com/custodia-labs/quarry/internal/logger"
	"github.com/custodia-labs/quarry/internal/postprocessors/chunker"
)

// envHome overrides the configuration directory.
const envHome = "QUARRY_HOME"

const shutdownTimeout = 10 * time.Second

// Options controls how NewApp locates configuration and storage.
type Options struct {
	// ConfigPath is an explicit config file. It takes precedence over ConfigDir.
	ConfigPath string

	// ConfigDir holds config.toml, .env and prompts. Defaults to ~/.quarry.
	ConfigDir string

	// Ephemeral keeps documents, history and sync state in memory.
	Ephemeral bool
}

// App holds the services commands run against.
type App struct {
	Settings   *domain.Settings
	Config     driving.SettingsService
	Query      driving.QueryService
	Ingest     driving.IngestService
	Aggregator driving.AggregatorService
	History    driving.HistoryService
	Tools      driven.ToolCaller

	// Warnings are non-fatal startup problems, such as a store fallback.
	Warnings []string

	startTools func(ctx context.Context) map[string]error
	toolsOnce  sync.Once
	toolErrs   map[string]error
	closers    []func() error
}

// NewApp loads configuration and wires every service.
func NewApp(ctx context.Context, opts Options) (*App, error) {
	dir, err := configDir(opts)
	if err != nil {
		return nil, err
	}
	if err := file.LoadEnv(dir); err != nil {
		return nil, err
	}

	var cfgStore *file.ConfigStore
	if opts.ConfigPath != "" {
		cfgStore, err = file.OpenConfigFile(opts.ConfigPath)
	} else {
		cfgStore, err = file.NewConfigStore(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	settingsSvc := services.NewSettingsService(cfgStore)
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, err
	}

	a := &App{Settings: settings, Config: settingsSvc}

	aiSvc, err := ai.Build(ctx, settings)
	if err != nil {
		return nil, err
	}
	a.Warnings = aiSvc.Warnings
	a.closers = append(a.closers, aiSvc.Close)

	var (
		docs    driven.DocumentStore
		history driven.HistoryStore
		states  driven.SyncStateStore
	)
	if opts.Ephemeral {
		docs = memory.NewDocumentStore()
		history = memory.NewHistoryStore()
		states = memory.NewSyncStateStore()
	} else {
		dataDir := settings.DataDir
		if dataDir == "" {
			dataDir = filepath.Join(dir, "data")
		}
		db, err := sqlite.NewStore(dataDir)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		docs = db.DocumentStore()
		history = db.HistoryStore()
		states = db.SyncStateStore()
	}

	ingest := services.NewIngestService(docs, aiSvc.Store, aiSvc.Embedder, chunker.New(
		chunker.WithChunkSize(settings.Chunking.Size),
		chunker.WithOverlap(settings.Chunking.Overlap),
	))
	if !opts.Ephemeral {
		n, err := ingest.Restore(ctx)
		if err != nil {
			logger.Warn("restoring vector store: %v", err)
		} else if n > 0 {
			logger.Debug("restored %d chunks into the vector store", n)
		}
	}

	supervisor := toolproc.NewSupervisor()
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return supervisor.Shutdown(shutdownCtx)
	})
	configs := make([]toolproc.ProviderConfig, len(settings.Tools))
	for i, t := range settings.Tools {
		configs[i] = toolproc.ConfigFromSettings(t)
	}
	a.startTools = func(ctx context.Context) map[string]error {
		return supervisor.Start(ctx, configs)
	}

	query := services.NewQueryService(aiSvc.Embedder, aiSvc.Store, aiSvc.LLM, history)
	query.SetToolCaller(supervisor)
	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	query.SetPromptStore(prompts)

	a.Query = query
	a.Ingest = ingest
	a.Aggregator = services.NewAggregator(supervisor, ingest, docs, states, settings.Sync.FetchLimit)
	a.History = services.NewHistoryService(history)
	a.Tools = supervisor
	return a, nil
}

// EnsureTools starts the configured tool providers once. It returns the
// providers that failed to start; the others remain usable.
func (a *App) EnsureTools(ctx context.Context) map[string]error {
	a.toolsOnce.Do(func() {
		if a.startTools != nil && len(a.Settings.Tools) > 0 {
			a.toolErrs = a.startTools(ctx)
		}
	})
	return a.toolErrs
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func configDir(opts Options) (string, error) {
	if opts.ConfigPath != "" {
		return filepath.Dir(opts.ConfigPath), nil
	}
	if opts.ConfigDir != "" {
		return opts.ConfigDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".quarry"), nil
}
