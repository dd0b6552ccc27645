package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a service provider for embeddings or generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the deterministic in-process embedder. It has no generation.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API (generation only).
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGemini
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Local (hashed bag of words)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available store backends.
const (
	StoreMemory StoreBackend = "memory"
	StoreQdrant StoreBackend = "qdrant"
)

// Default settings values.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultDimensions     = 384
	DefaultStartupTimeout = 10 * time.Second
	DefaultCallTimeout    = 30 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	DefaultReadyPattern   = "running on stdio"
	DefaultFetchLimit     = 50
)

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	Provider   AIProvider
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// IsRemote returns true when a network embedder is configured.
func (e EmbeddingSettings) IsRemote() bool {
	return e.Provider != "" && e.Provider != AIProviderLocal
}

// LLMSettings configures the generation capability.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true if a generation provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings configures the vector store.
type StoreSettings struct {
	Backend      StoreBackend
	URL          string
	APIKey       string
	Collection   string
	ProbeTimeout time.Duration
}

// ToolProviderSettings describes one supervised worker.
type ToolProviderSettings struct {
	Name           string
	Command        string
	Args           []string
	Env            map[string]string
	Dir            string
	ReadyPattern   string
	StartupTimeout time.Duration
	CallTimeout    time.Duration
	Live           bool
}

// SyncSettings configures aggregation.
type SyncSettings struct {
	Schedule   string
	FetchLimit int
}

// Settings is the complete application configuration.
type Settings struct {
	DataDir   string
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Store     StoreSettings
	Tools     []ToolProviderSettings
	Sync      SyncSettings
}

// DefaultSettings returns settings for a fully local setup.
func DefaultSettings() Settings {
	return Settings{
		Chunking:  ChunkingSettings{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		Embedding: EmbeddingSettings{Provider: AIProviderLocal, Dimensions: DefaultDimensions},
		Store:     StoreSettings{Backend: StoreMemory, Collection: "quarry", ProbeTimeout: DefaultProbeTimeout},
		Sync:      SyncSettings{FetchLimit: DefaultFetchLimit},
	}
}

// ApplyDefaults fills zero values from DefaultSettings.
func (s *Settings) ApplyDefaults() {
	d := DefaultSettings()
	if s.Chunking.Size <= 0 {
		s.Chunking.Size = d.Chunking.Size
	}
	if s.Chunking.Overlap < 0 {
		s.Chunking.Overlap = 0
	}
	if s.Embedding.Provider == "" {
		s.Embedding.Provider = d.Embedding.Provider
	}
	if s.Embedding.Dimensions == 0 && s.Embedding.Provider == AIProviderLocal {
		s.Embedding.Dimensions = d.Embedding.Dimensions
	}
	if s.Store.Backend == "" {
		s.Store.Backend = d.Store.Backend
	}
	if s.Store.Collection == "" {
		s.Store.Collection = d.Store.Collection
	}
	if s.Store.ProbeTimeout <= 0 {
		s.Store.ProbeTimeout = d.Store.ProbeTimeout
	}
	if s.Sync.FetchLimit <= 0 {
		s.Sync.FetchLimit = d.Sync.FetchLimit
	}
	for i := range s.Tools {
		t := &s.Tools[i]
		if t.ReadyPattern == "" {
			t.ReadyPattern = DefaultReadyPattern
		}
		if t.StartupTimeout <= 0 {
			t.StartupTimeout = DefaultStartupTimeout
		}
		if t.CallTimeout <= 0 {
			t.CallTimeout = DefaultCallTimeout
		}
	}
}

// Validate reports configuration errors. They are fatal at startup.
func (s *Settings) Validate() error {
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", ErrConfig)
	}
	if !s.Embedding.Provider.IsValid() || s.Embedding.Provider == AIProviderAnthropic {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfig, s.Embedding.Provider)
	}
	if s.Embedding.Dimensions <= 0 {
		return fmt.Errorf("%w: embedding.dimensions is required", ErrConfig)
	}
	if s.LLM.Provider != "" && (!s.LLM.Provider.IsValid() || s.LLM.Provider == AIProviderLocal) {
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfig, s.LLM.Provider)
	}
	switch s.Store.Backend {
	case StoreMemory:
	case StoreQdrant:
		if s.Store.URL == "" {
			return fmt.Errorf("%w: store.url is required for qdrant", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrConfig, s.Store.Backend)
	}
	seen := make(map[string]bool, len(s.Tools))
	for _, t := range s.Tools {
		if t.Name == "" || t.Command == "" {
			return fmt.Errorf("%w: tool providers need a name and command", ErrConfig)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate tool provider %q", ErrConfig, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// LiveSources returns the names of providers flagged for live query context.
func (s *Settings) LiveSources() []string {
	var names []string
	for _, t := range s.Tools {
		if t.Live {
			names = append(names, t.Name)
		}
	}
	return names
}

// ToolNames returns all configured provider names in order.
func (s *Settings) ToolNames() []string {
	names := make([]string, len(s.Tools))
	for i, t := range s.Tools {
		names[i] = t.Name
	}
	return names
}
