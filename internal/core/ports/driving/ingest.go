package driving

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// IngestService adds documents to the index and removes them.
type IngestService interface {
	// Ingest chunks, embeds and stores a document.
	// Re-ingesting an existing ID replaces its previous chunks.
	Ingest(ctx context.Context, doc domain.Document) (*domain.IngestResult, error)

	// Delete removes a document and its records. Unknown IDs are a no-op.
	Delete(ctx context.Context, documentID string) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents for a source kind, or all when empty.
	List(ctx context.Context, sourceKind string) ([]domain.Document, error)

	// Restore loads persisted chunks into the vector store and returns
	// how many records were added. Run once at startup.
	Restore(ctx context.Context) (int, error)
}
