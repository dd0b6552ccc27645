// Package ai provides factory functions for creating AI service adapters
// and the vector store they feed.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/fallback"
	geminiembed "github.com/custodia-labs/quarry/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/quarry/internal/adapters/driven/embedding/local"
	ollamaembed "github.com/custodia-labs/quarry/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/quarry/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/quarry/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/failover"
	vectormemory "github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Services contains the result of AI service initialisation.
type Services struct {
	Embedder driven.EmbeddingService
	LLM      driven.LLMService // nil when no generator is configured.
	Store    driven.VectorStore

	// Mirror is the in-process store. It is Store itself for the memory
	// backend and the failover mirror for qdrant.
	Mirror *vectormemory.Store

	// Failover is set when the qdrant backend is active.
	Failover *failover.Store

	Warnings []string // Non-fatal issues that caused a fallback.
}

// Close releases all resources held by Services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedder != nil {
		errs = append(errs, s.Embedder.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// Build creates the embedder, generator and vector store described by settings.
// Configuration errors are returned; an unreachable remote store is not an
// error and leaves Quarry on the in-process store with a warning.
func Build(ctx context.Context, settings *domain.Settings) (*Services, error) {
	out := &Services{}

	embedder, err := CreateEmbeddingService(ctx, settings.Embedding)
	if err != nil {
		return nil, err
	}
	out.Embedder = embedder
	if settings.Embedding.IsRemote() {
		if err := probeDimensions(ctx, embedder); err != nil {
			_ = out.Close()
			return nil, err
		}
	}

	llm, err := CreateLLMService(ctx, settings.LLM)
	if err != nil {
		_ = out.Close()
		return nil, err
	}
	out.LLM = llm
	if settings.LLM.Provider != "" && llm == nil {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("llm provider %s has no API key, answers will be extractive", settings.LLM.Provider))
	}

	if err := out.createStore(ctx, settings.Store, embedder.Dimensions()); err != nil {
		_ = out.Close()
		return nil, err
	}

	for _, w := range out.Warnings {
		logger.Warn("%s", w)
	}
	return out, nil
}

// probeDimensions embeds one short text so a model that disagrees with
// embedding.dimensions fails at startup. An unreachable provider is not an
// error here; the fallback embedder covers it.
func probeDimensions(ctx context.Context, embedder driven.EmbeddingService) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := embedder.Embed(ctx, "quarry"); errors.Is(err, domain.ErrDimensionMismatch) {
		return err
	}
	return nil
}

func (s *Services) createStore(ctx context.Context, settings domain.StoreSettings, dims int) error {
	mirror, err := vectormemory.NewStore(dims)
	if err != nil {
		return err
	}
	s.Mirror = mirror

	if settings.Backend != domain.StoreQdrant {
		s.Store = mirror
		return nil
	}

	remote, err := qdrant.NewStore(ctx, qdrant.Config{
		URL:          settings.URL,
		APIKey:       settings.APIKey,
		Collection:   settings.Collection,
		Dimensions:   dims,
		ProbeTimeout: settings.ProbeTimeout,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			return err
		}
		s.Warnings = append(s.Warnings, fmt.Sprintf("qdrant unavailable, using in-process store: %v", err))
		s.Store = mirror
		return nil
	}

	fo, err := failover.New(remote, mirror)
	if err != nil {
		_ = remote.Close()
		return err
	}
	s.Store = fo
	s.Failover = fo
	return nil
}

// CreateEmbeddingService creates the embedder for settings. Remote providers
// are wrapped so that a failing call falls back to the local embedder.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsRemote() {
		dims := settings.Dimensions
		if dims <= 0 {
			dims = domain.DefaultDimensions
		}
		return local.NewEmbeddingService(dims), nil
	}

	remote, err := CreateRemoteEmbeddingService(ctx, settings)
	if err != nil {
		return nil, err
	}
	if settings.Dimensions > 0 && remote.Dimensions() != settings.Dimensions {
		_ = remote.Close()
		return nil, fmt.Errorf("%w: %s produces %d dimensions, configured %d",
			domain.ErrDimensionMismatch, remote.ModelName(), remote.Dimensions(), settings.Dimensions)
	}

	svc, err := fallback.New(remote, local.NewEmbeddingService(remote.Dimensions()))
	if err != nil {
		_ = remote.Close()
		return nil, err
	}
	return svc, nil
}

// CreateRemoteEmbeddingService creates a network embedder without the local fallback.
func CreateRemoteEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or gemini", domain.ErrConfig)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrConfig, settings.Provider)
	}
}

// CreateLLMService creates the generator for settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderGemini:
		svc, err := geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrConfig, settings.Provider)
	}
}
