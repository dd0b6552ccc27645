package driven

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// VectorStore stores embedded records and answers similarity queries.
// All records in one store share Dimensions() for its lifetime.
type VectorStore interface {
	// Add inserts records, replacing any with the same ID.
	// A vector of the wrong length fails with domain.ErrDimensionMismatch.
	Add(ctx context.Context, records []domain.VectorRecord) error

	// Remove deletes every record belonging to a document.
	Remove(ctx context.Context, documentID string) error

	// Search returns at most max hits ordered by similarity descending.
	// Similarity is normalised to [0, 1].
	Search(ctx context.Context, query []float32, filter domain.SearchFilter, max int) ([]domain.VectorHit, error)

	// Dimensions returns the vector size the store was configured with.
	Dimensions() int

	// Close releases resources.
	Close() error
}

// RecoverableStore is a remote VectorStore that can re-provision itself after corruption.
type RecoverableStore interface {
	VectorStore

	// Recreate provisions a fresh collection under a new identifier.
	Recreate(ctx context.Context) error

	// Ping checks the remote service is reachable.
	Ping(ctx context.Context) error
}
