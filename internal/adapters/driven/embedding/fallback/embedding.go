// Package fallback composes a remote embedding service with a local one.
//
// Embedding is never a hard failure for indexing or querying: when the
// primary service errors, the composition logs a warning and returns the
// local vector instead. Both services must produce vectors of the same
// length so the store never holds mixed dimensions. A primary that returns
// vectors of the wrong length is misconfigured, so domain.ErrDimensionMismatch
// is passed through rather than hidden behind the local vector.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService tries Primary and falls through to Local.
type EmbeddingService struct {
	primary driven.EmbeddingService
	local   driven.EmbeddingService
}

// New composes primary with local. The two must agree on dimensions.
func New(primary, local driven.EmbeddingService) (*EmbeddingService, error) {
	if primary == nil || local == nil {
		return nil, fmt.Errorf("%w: fallback embedder needs a primary and a local service", domain.ErrConfig)
	}
	if primary.Dimensions() != local.Dimensions() {
		return nil, fmt.Errorf("%w: primary %s has %d dimensions, local has %d",
			domain.ErrDimensionMismatch, primary.ModelName(), primary.Dimensions(), local.Dimensions())
	}
	return &EmbeddingService{primary: primary, local: local}, nil
}

// Embed returns the primary embedding, or the local one if the primary fails.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.primary.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	if errors.Is(err, domain.ErrDimensionMismatch) {
		return nil, err
	}
	logger.Warn("embedding: %s failed, using %s: %v", s.primary.ModelName(), s.local.ModelName(), err)
	return s.local.Embed(ctx, text)
}

// EmbedBatch embeds with the primary, falling back to local for the whole batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.primary.EmbedBatch(ctx, texts)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, domain.ErrDimensionMismatch) {
		return nil, err
	}
	logger.Warn("embedding: %s batch of %d failed, using %s: %v",
		s.primary.ModelName(), len(texts), s.local.ModelName(), err)
	return s.local.EmbedBatch(ctx, texts)
}

// Dimensions returns the shared embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.primary.Dimensions()
}

// ModelName returns the primary model name.
func (s *EmbeddingService) ModelName() string {
	return s.primary.ModelName()
}

// Ping reports whether the primary is reachable. The composition works either way.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.primary.Ping(ctx)
}

// Close releases both services.
func (s *EmbeddingService) Close() error {
	perr := s.primary.Close()
	lerr := s.local.Close()
	if perr != nil {
		return perr
	}
	return lerr
}
