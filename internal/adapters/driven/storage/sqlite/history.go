package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// historyStore implements driven.HistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

type historyRow struct {
	ID          string  `db:"id"`
	Query       string  `db:"query"`
	Answer      string  `db:"answer"`
	Sources     string  `db:"sources"`
	Confidence  float64 `db:"confidence"`
	Temperature float64 `db:"temperature"`
	MaxResults  int     `db:"max_results"`
	CreatedAt   string  `db:"created_at"`
}

const historyColumns = `id, query, answer, sources, confidence, temperature, max_results, created_at`

// Save appends a record.
func (s *historyStore) Save(ctx context.Context, rec *domain.QueryRecord) error {
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	row := historyRow{
		ID:          rec.ID,
		Query:       rec.Query,
		Answer:      rec.Answer,
		Sources:     string(sources),
		Confidence:  rec.Confidence,
		Temperature: rec.Settings.Temperature,
		MaxResults:  rec.Settings.MaxResults,
		CreatedAt:   formatTime(rec.CreatedAt),
	}
	_, err = s.store.db.NamedExecContext(ctx, `
		INSERT INTO query_history (`+historyColumns+`)
		VALUES (:id, :query, :answer, :sources, :confidence, :temperature, :max_results, :created_at)
	`, row)
	if err != nil {
		return fmt.Errorf("saving query record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *historyStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	var row historyRow
	err := s.store.db.GetContext(ctx, &row, `SELECT `+historyColumns+` FROM query_history WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying query record: %w", err)
	}
	return row.toDomain()
}

// List returns the newest records first.
func (s *historyStore) List(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []historyRow
	err := s.store.db.SelectContext(ctx, &rows,
		`SELECT `+historyColumns+` FROM query_history ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying query history: %w", err)
	}

	records := make([]domain.QueryRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Delete removes a record by ID.
func (s *historyStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM query_history WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting query record: %w", err)
	}
	return nil
}

// DeleteOlderThan removes records created before cutoff.
func (s *historyStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM query_history WHERE created_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("pruning query history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned records: %w", err)
	}
	return int(n), nil
}

func (r *historyRow) toDomain() (*domain.QueryRecord, error) {
	rec := &domain.QueryRecord{
		ID:         r.ID,
		Query:      r.Query,
		Answer:     r.Answer,
		Confidence: r.Confidence,
		Settings: domain.QuerySettings{
			Temperature: r.Temperature,
			MaxResults:  r.MaxResults,
		},
	}
	var err error
	if rec.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.Sources), &rec.Sources); err != nil {
		return nil, fmt.Errorf("unmarshalling sources: %w", err)
	}
	return rec, nil
}
