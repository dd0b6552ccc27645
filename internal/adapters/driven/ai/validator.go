package ai

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/quarry/internal/core/domain"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Check is the outcome of probing one configured component.
type Check struct {
	Component string // "embedding", "llm" or "store".
	Provider  string
	Err       error // nil when the component answered.
	Skipped   bool  // true when nothing remote is configured.
}

// OK reports whether the component is usable.
func (c Check) OK() bool {
	return c.Err == nil
}

// ConfigValidator probes the remote services named in settings.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// Validate pings the embedder, generator and vector store in turn.
// It never falls back: a remote that does not answer is reported as such.
func (v *ConfigValidator) Validate(ctx context.Context, settings *domain.Settings) []Check {
	return []Check{
		v.ValidateEmbedding(ctx, settings.Embedding),
		v.ValidateLLM(ctx, settings.LLM),
		v.ValidateStore(ctx, settings.Store, settings.Embedding.Dimensions),
	}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) Check {
	check := Check{Component: "embedding", Provider: string(settings.Provider)}
	if !settings.IsRemote() {
		check.Skipped = true
		return check
	}

	svc, err := CreateRemoteEmbeddingService(ctx, settings)
	if err != nil {
		check.Err = err
		return check
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	check.Err = svc.Ping(ctx)
	return check
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings domain.LLMSettings) Check {
	check := Check{Component: "llm", Provider: string(settings.Provider)}
	if settings.Provider == "" {
		check.Skipped = true
		return check
	}

	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		check.Err = err
		return check
	}
	if svc == nil {
		check.Err = errors.Join(domain.ErrConfig, errors.New("API key missing"))
		return check
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	check.Err = svc.Ping(ctx)
	return check
}

// ValidateStore checks the remote vector store answers.
func (v *ConfigValidator) ValidateStore(ctx context.Context, settings domain.StoreSettings, dims int) Check {
	check := Check{Component: "store", Provider: string(settings.Backend)}
	if settings.Backend != domain.StoreQdrant {
		check.Skipped = true
		return check
	}

	timeout := settings.ProbeTimeout
	if timeout <= 0 || timeout > v.timeout {
		timeout = v.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := qdrant.NewStore(ctx, qdrant.Config{
		URL:          settings.URL,
		APIKey:       settings.APIKey,
		Collection:   settings.Collection,
		Dimensions:   dims,
		ProbeTimeout: timeout,
	})
	if err != nil {
		check.Err = err
		return check
	}
	check.Err = store.Close()
	return check
}
