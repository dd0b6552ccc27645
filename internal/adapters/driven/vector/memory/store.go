// Package memory provides an in-process VectorStore using a linear cosine scan.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store holds every record in memory. Searches take a read lock, so
// Add and Remove are safe under concurrent Search.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]domain.VectorRecord
}

// NewStore creates an empty store for vectors of the given size.
func NewStore(dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector store dimensions must be positive", domain.ErrConfig)
	}
	return &Store{
		dimensions: dimensions,
		records:    make(map[string]domain.VectorRecord),
	}, nil
}

// Add inserts records, replacing any with the same ID.
// No record is stored if any vector has the wrong length.
func (s *Store) Add(_ context.Context, records []domain.VectorRecord) error {
	for _, r := range records {
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("%w: record %s has %d values, store has %d",
				domain.ErrDimensionMismatch, r.ID, len(r.Vector), s.dimensions)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

// Remove deletes every record referencing documentID. Unknown IDs are a no-op.
func (s *Store) Remove(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.DocumentID() == documentID {
			delete(s.records, id)
		}
	}
	return nil
}

// Search scores every candidate against query and returns the best max.
// Ties are broken by record ID so results are stable.
func (s *Store) Search(_ context.Context, query []float32, filter domain.SearchFilter, max int) ([]domain.VectorHit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d values, store has %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if max <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	hits := make([]domain.VectorHit, 0, len(s.records))
	for _, r := range s.records {
		if filter.DocumentID != "" && r.DocumentID() != filter.DocumentID {
			continue
		}
		hits = append(hits, domain.VectorHit{Record: r, Similarity: Similarity(query, r.Vector)})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > max {
		hits = hits[:max]
	}
	return hits, nil
}

// Records returns a copy of every stored record ordered by ID.
func (s *Store) Records() []domain.VectorRecord {
	s.mu.RLock()
	out := make([]domain.VectorRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dimensions returns the vector size the store was configured with.
func (s *Store) Dimensions() int {
	return s.dimensions
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// Similarity is cosine similarity clamped to [0, 1].
// A zero vector on either side scores 0.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return math.Min(1, math.Max(0, cos))
}
