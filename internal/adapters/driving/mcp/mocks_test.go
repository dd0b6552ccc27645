package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	record   *domain.QueryRecord
	hits     []domain.VectorHit
	err      error
	lastText string
	lastOpts domain.QueryOptions
}

func (m *mockQueryService) Query(_ context.Context, text string, opts domain.QueryOptions) (*domain.QueryRecord, error) {
	m.lastText = text
	m.lastOpts = opts
	return m.record, m.err
}

func (m *mockQueryService) Search(_ context.Context, text string, opts domain.QueryOptions) ([]domain.VectorHit, error) {
	m.lastText = text
	m.lastOpts = opts
	return m.hits, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	docs []domain.Document
	err  error
}

func (m *mockIngestService) Ingest(_ context.Context, doc domain.Document) (*domain.IngestResult, error) {
	return &domain.IngestResult{DocumentID: doc.ID}, m.err
}

func (m *mockIngestService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestService) Get(_ context.Context, id string) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockIngestService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockIngestService) Restore(_ context.Context) (int, error) {
	return 0, m.err
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	records []domain.QueryRecord
	err     error
}

func (m *mockHistoryService) List(_ context.Context, _ int) ([]domain.QueryRecord, error) {
	return m.records, m.err
}

func (m *mockHistoryService) Get(_ context.Context, _ string) (*domain.QueryRecord, error) {
	return nil, domain.ErrNotFound
}

func (m *mockHistoryService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockHistoryService) DeleteOlderThan(_ context.Context, _ time.Time) (int, error) {
	return 0, m.err
}

func (m *mockHistoryService) Export(_ context.Context, _ []string, _ domain.ExportFormat) ([]byte, error) {
	return nil, m.err
}

// mockAggregator is a mock implementation of driving.AggregatorService.
type mockAggregator struct {
	report  domain.SyncReport
	sources []string
}

func (m *mockAggregator) Sync(_ context.Context, sources []string) domain.SyncReport {
	m.sources = sources
	return m.report
}

func (m *mockAggregator) RemoveSource(_ context.Context, _ string) error {
	return nil
}

func (m *mockAggregator) Status(_ context.Context) ([]domain.SyncState, error) {
	return nil, nil
}
