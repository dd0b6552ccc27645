package driving

import (
	"context"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// QueryService answers questions from indexed content.
type QueryService interface {
	// Query retrieves context, generates an answer and records it in history.
	// An empty question fails with domain.ErrInvalidInput.
	Query(ctx context.Context, text string, opts domain.QueryOptions) (*domain.QueryRecord, error)

	// Search performs retrieval only and returns at most opts.MaxResults hits.
	Search(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.VectorHit, error)
}
