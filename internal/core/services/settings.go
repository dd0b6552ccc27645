package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir         = "data_dir"
	keyChunkSize       = "chunking.size"
	keyChunkOverlap    = "chunking.overlap"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyStoreBackend    = "store.backend"
	keyStoreURL        = "store.url"
	keyStoreAPIKey     = "store.api_key"
	keyStoreCollection = "store.collection"
	keyStoreProbe      = "store.probe_timeout"
	keySyncSchedule    = "sync.schedule"
	keySyncFetchLimit  = "sync.fetch_limit"
	keyTools           = "tools"
)

// Environment variables consulted when a key is not configured.
//
//nolint:gosec // G101: variable names only.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
	envGeminiKey    = "GEMINI_API_KEY"
	envQdrantKey    = "QDRANT_API_KEY"
)

// overlapUnset distinguishes a missing chunking.overlap from an explicit 0.
const overlapUnset = -1

// SettingsService maps a ConfigStore onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Path returns the backing configuration path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// Get builds settings from configuration, environment and defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := domain.Settings{
		DataDir: s.configStore.GetString(keyDataDir),
		Chunking: domain.ChunkingSettings{
			Size:    s.configStore.GetInt(keyChunkSize),
			Overlap: s.getInt(keyChunkOverlap, overlapUnset),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(s.configStore.GetString(keyEmbedProvider)),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		LLM: domain.LLMSettings{
			Provider: domain.AIProvider(s.configStore.GetString(keyLLMProvider)),
			Model:    s.configStore.GetString(keyLLMModel),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Store: domain.StoreSettings{
			Backend:    domain.StoreBackend(s.configStore.GetString(keyStoreBackend)),
			URL:        s.configStore.GetString(keyStoreURL),
			APIKey:     s.configStore.GetString(keyStoreAPIKey),
			Collection: s.configStore.GetString(keyStoreCollection),
		},
		Sync: domain.SyncSettings{
			Schedule:   s.configStore.GetString(keySyncSchedule),
			FetchLimit: s.configStore.GetInt(keySyncFetchLimit),
		},
	}

	var err error
	if settings.Store.ProbeTimeout, err = s.getDuration(keyStoreProbe); err != nil {
		return nil, err
	}
	if settings.Tools, err = s.getTools(); err != nil {
		return nil, err
	}

	if settings.Chunking.Overlap == overlapUnset {
		settings.Chunking.Overlap = domain.DefaultChunkOverlap
	}
	settings.Embedding.APIKey = s.apiKey(settings.Embedding.Provider, settings.Embedding.APIKey)
	settings.LLM.APIKey = s.apiKey(settings.LLM.Provider, settings.LLM.APIKey)
	if settings.Store.APIKey == "" {
		settings.Store.APIKey = s.getenv(envQdrantKey)
	}

	settings.ApplyDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Set parses value according to the key and persists it.
// Numeric keys must hold integers; everything else is stored as a string.
func (s *SettingsService) Set(key, value string) error {
	switch key {
	case keyChunkSize, keyChunkOverlap, keyEmbedDimensions, keySyncFetchLimit:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrConfig, key)
		}
		return s.configStore.Set(key, n)
	case keyStoreProbe:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration", domain.ErrConfig, key)
		}
	case keyEmbedProvider, keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown provider %q", domain.ErrConfig, value)
		}
	case keyTools:
		return fmt.Errorf("%w: tools must be edited in %s", domain.ErrConfig, s.configStore.Path())
	}
	return s.configStore.Set(key, value)
}

// apiKey falls back to the provider's environment variable.
func (s *SettingsService) apiKey(provider domain.AIProvider, configured string) string {
	if configured != "" {
		return configured
	}
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(envOpenAIKey)
	case domain.AIProviderAnthropic:
		return s.getenv(envAnthropicKey)
	case domain.AIProviderGemini:
		return s.getenv(envGeminiKey)
	default:
		return ""
	}
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getDuration(key string) (time.Duration, error) {
	val := s.configStore.GetString(key)
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrConfig, key, err)
	}
	return d, nil
}

// getTools decodes the [[tools]] array of tables.
func (s *SettingsService) getTools() ([]domain.ToolProviderSettings, error) {
	raw, ok := s.configStore.Get(keyTools)
	if !ok {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: tools must be a list of tables", domain.ErrConfig)
	}

	tools := make([]domain.ToolProviderSettings, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: tools[%d] must be a table", domain.ErrConfig, i)
		}
		t := domain.ToolProviderSettings{
			Name:         stringValue(m["name"]),
			Command:      stringValue(m["command"]),
			Args:         stringSlice(m["args"]),
			Dir:          stringValue(m["dir"]),
			ReadyPattern: stringValue(m["ready_pattern"]),
			Live:         m["live"] == true,
		}
		if env, ok := m["env"].(map[string]any); ok {
			t.Env = make(map[string]string, len(env))
			for k, v := range env {
				t.Env[k] = os.ExpandEnv(fmt.Sprint(v))
			}
		}
		for key, dst := range map[string]*time.Duration{
			"startup_timeout": &t.StartupTimeout,
			"call_timeout":    &t.CallTimeout,
		} {
			v := stringValue(m[key])
			if v == "" {
				continue
			}
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%w: tools[%d].%s: %v", domain.ErrConfig, i, key, err)
			}
			*dst = d
		}
		tools = append(tools, t)
	}
	return tools, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}
