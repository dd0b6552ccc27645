package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// SaveChunks replaces the chunks stored for a document.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(chunks) == 0 {
		delete(s.chunks, documentID)
		return nil
	}
	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[documentID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	if chunks == nil {
		return nil, nil
	}
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns documents for a source kind, or all when empty.
// Results are ordered by creation time, then ID.
func (s *DocumentStore) ListDocuments(_ context.Context, sourceKind string) ([]domain.Document, error) {
	s.mu.RLock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		if sourceKind == "" || doc.SourceKind == sourceKind {
			result = append(result, doc)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
