// Package local provides a deterministic in-process embedding service.
//
// Text is split into lowercase runs of letters and digits. Each token is
// hashed (FNV-1a, 32-bit) into one of Dimensions buckets, every occurrence
// adds 1/sqrt(tokenCount), and the vector is L2-normalised. The result is a
// pure function of the input, so it needs no network and is reproducible.
package local

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is reported for vectors produced by this service.
const ModelName = "local-hash"

// EmbeddingService hashes tokens into a fixed-size vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a local embedder. A non-positive dimension
// selects domain.DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = domain.DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the hashed bag-of-words vector for text. It never fails.
// Text without tokens yields the zero vector.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return s.vector(text), nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = s.vector(t)
	}
	return out, nil
}

func (s *EmbeddingService) vector(text string) []float32 {
	acc := make([]float64, s.dimensions)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return make([]float32, s.dimensions)
	}

	weight := 1 / math.Sqrt(float64(len(tokens)))
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		acc[h.Sum32()%uint32(s.dimensions)] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, s.dimensions)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Tokenize splits text into lowercase runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
