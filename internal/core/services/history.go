package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// csvHeader is the column layout of CSV exports.
var csvHeader = []string{"query", "answer", "timestamp", "confidence"}

// HistoryService browses and exports answered queries.
type HistoryService struct {
	store driven.HistoryStore
}

// NewHistoryService creates a history service.
func NewHistoryService(store driven.HistoryStore) *HistoryService {
	return &HistoryService{store: store}
}

// List returns the newest records first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	return s.store.List(ctx, limit)
}

// Get retrieves a record by ID.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a record by ID.
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DeleteOlderThan removes records created before cutoff.
func (s *HistoryService) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return s.store.DeleteOlderThan(ctx, cutoff)
}

// Export serialises records in the requested format.
func (s *HistoryService) Export(ctx context.Context, ids []string, format domain.ExportFormat) ([]byte, error) {
	if format != domain.ExportJSON && format != domain.ExportCSV {
		return nil, fmt.Errorf("%w: %q (want json or csv)", domain.ErrUnsupportedFormat, format)
	}

	records, err := s.collect(ctx, ids)
	if err != nil {
		return nil, err
	}

	if format == domain.ExportJSON {
		return json.MarshalIndent(records, "", "  ")
	}
	return encodeCSV(records)
}

func (s *HistoryService) collect(ctx context.Context, ids []string) ([]domain.QueryRecord, error) {
	if len(ids) == 0 {
		return s.store.List(ctx, 0)
	}
	records := make([]domain.QueryRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.store.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", id, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func encodeCSV(records []domain.QueryRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i := range records {
		rec := &records[i]
		row := []string{
			rec.Query,
			rec.Answer,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rec.Confidence, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
