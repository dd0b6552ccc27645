// Package gemini provides an embedding service adapter using the Google Gemini API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Dimensions is the embedding vector size (default: 768).
	Dimensions int
}

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	name       string
	dimensions int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key is required", domain.ErrConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      client.EmbeddingModel(cfg.Model),
		name:       cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := s.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("%w: gemini returned no embedding", domain.ErrEmbeddingUnavailable)
	}
	return s.check(res.Embedding.Values)
}

// EmbedBatch embeds all texts with one batch request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := s.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := s.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs",
			domain.ErrEmbeddingUnavailable, len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("%w: gemini returned no embedding for input %d", domain.ErrEmbeddingUnavailable, i)
		}
		if out[i], err = s.check(e.Values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *EmbeddingService) check(values []float32) ([]float32, error) {
	if len(values) != s.dimensions {
		return nil, fmt.Errorf("%w: gemini model %s returned %d values, configured for %d",
			domain.ErrDimensionMismatch, s.name, len(values), s.dimensions)
	}
	return values, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.name
}

// Ping embeds a short probe string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	return s.client.Close()
}
