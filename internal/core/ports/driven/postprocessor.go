package driven

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks (the chunker) receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}
