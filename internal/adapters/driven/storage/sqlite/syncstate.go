package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

type syncStateRow struct {
	Source    string `db:"source"`
	ItemCount int    `db:"item_count"`
	LastSync  string `db:"last_sync"`
}

// Save stores or updates sync state.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (source, item_count, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			item_count = excluded.item_count,
			last_sync = excluded.last_sync
	`, state.Source, state.ItemCount, formatTime(state.LastSync))
	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a source.
func (s *syncStateStore) Get(ctx context.Context, source string) (*domain.SyncState, error) {
	var row syncStateRow
	err := s.store.db.GetContext(ctx, &row,
		"SELECT source, item_count, last_sync FROM sync_states WHERE source = ?", source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying sync state: %w", err)
	}
	return row.toDomain()
}

// List returns every sync state ordered by source name.
func (s *syncStateStore) List(ctx context.Context) ([]domain.SyncState, error) {
	var rows []syncStateRow
	if err := s.store.db.SelectContext(ctx, &rows,
		"SELECT source, item_count, last_sync FROM sync_states ORDER BY source"); err != nil {
		return nil, fmt.Errorf("querying sync states: %w", err)
	}
	states := make([]domain.SyncState, 0, len(rows))
	for i := range rows {
		st, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		states = append(states, *st)
	}
	return states, nil
}

// Delete removes sync state for a source.
func (s *syncStateStore) Delete(ctx context.Context, source string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_states WHERE source = ?", source); err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

func (r *syncStateRow) toDomain() (*domain.SyncState, error) {
	lastSync, err := parseTime(r.LastSync)
	if err != nil {
		return nil, err
	}
	return &domain.SyncState{Source: r.Source, ItemCount: r.ItemCount, LastSync: lastSync}, nil
}
