package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// HistoryStore persists answered queries. Records are never modified.
type HistoryStore interface {
	// Save appends a record.
	Save(ctx context.Context, rec *domain.QueryRecord) error

	// Get retrieves a record by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// List returns the newest records first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes records created before cutoff and reports how many.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
