package driving

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// AggregatorService pulls content from tool providers into the index.
type AggregatorService interface {
	// Sync fetches and indexes items from each source in turn.
	// A failing source is reported in the result and does not stop the others.
	Sync(ctx context.Context, sources []string) domain.SyncReport

	// RemoveSource deletes every document from a source and its sync state.
	RemoveSource(ctx context.Context, source string) error

	// Status returns the sync state of every synced source.
	Status(ctx context.Context) ([]domain.SyncState, error)
}
