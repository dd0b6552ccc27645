package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func TestNewEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{Model: DefaultModel})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestCheck(t *testing.T) {
	s := &EmbeddingService{name: DefaultModel, dimensions: 3}

	out, err := s.check([]float32{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, out)

	_, err = s.check([]float32{0.1, 0.2})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), DefaultModel)

	_, err = s.check(nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	s := &EmbeddingService{name: DefaultModel, dimensions: DefaultDimensions}

	out, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, DefaultModel, s.ModelName())
}
