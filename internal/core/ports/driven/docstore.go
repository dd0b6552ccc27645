package driven

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite, or memory for ephemeral runs.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks replaces the chunks stored for their document.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents for a source kind, or all when empty.
	ListDocuments(ctx context.Context, sourceKind string) ([]domain.Document, error)
}
