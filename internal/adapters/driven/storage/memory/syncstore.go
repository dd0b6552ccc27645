package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]domain.SyncState),
	}
}

// Save stores or updates sync state.
func (s *SyncStateStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Source] = state
	return nil
}

// Get retrieves sync state for a source.
func (s *SyncStateStore) Get(_ context.Context, source string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[source]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// List returns every sync state ordered by source name.
func (s *SyncStateStore) List(_ context.Context) ([]domain.SyncState, error) {
	s.mu.RLock()
	out := make([]domain.SyncState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

// Delete removes sync state for a source.
func (s *SyncStateStore) Delete(_ context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, source)
	return nil
}
