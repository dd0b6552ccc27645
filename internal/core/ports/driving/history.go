package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// HistoryService browses, prunes and exports answered queries.
type HistoryService interface {
	// List returns the newest records first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]domain.QueryRecord, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes records created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Export serialises the given records, or all records when ids is empty.
	// Unknown IDs are skipped. An unknown format fails with domain.ErrUnsupportedFormat.
	Export(ctx context.Context, ids []string, format domain.ExportFormat) ([]byte, error)
}
