package driven

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// SyncStateStore persists sync progress.
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a source.
	// Returns domain.ErrNotFound if the source was never synced.
	Get(ctx context.Context, source string) (*domain.SyncState, error)

	// List returns the state of every synced source ordered by name.
	List(ctx context.Context) ([]domain.SyncState, error)

	// Delete removes sync state for a source.
	Delete(ctx context.Context, source string) error
}
