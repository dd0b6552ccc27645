// Package failover provides a VectorStore that prefers a remote backend and
// permanently downgrades to the in-process backend when the remote cannot
// be repaired.
package failover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driven"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store routes calls to a remote store while mirroring every record into
// an in-process store.
//
// A store-corruption error from the remote triggers one recovery cycle:
// the collection is recreated and re-seeded from the mirror, then the
// failed operation is retried once. If any step fails the store downgrades
// and every later call goes to the mirror only. Recovery and downgrade are
// serialised so concurrent failures recover once.
type Store struct {
	remote driven.RecoverableStore
	local  *memory.Store

	mu         sync.Mutex
	epoch      atomic.Uint64
	downgraded atomic.Bool
}

// New wraps remote with an in-process mirror of the same dimensionality.
func New(remote driven.RecoverableStore, local *memory.Store) (*Store, error) {
	if remote.Dimensions() != local.Dimensions() {
		return nil, fmt.Errorf("%w: remote store has %d dimensions, local has %d",
			domain.ErrDimensionMismatch, remote.Dimensions(), local.Dimensions())
	}
	return &Store{remote: remote, local: local}, nil
}

// Downgraded reports whether the store has switched to in-process only.
func (s *Store) Downgraded() bool {
	return s.downgraded.Load()
}

// Add stores records in the mirror, then in the remote.
// Remote failures other than dimension errors are logged, not returned:
// the mirror already holds the records.
func (s *Store) Add(ctx context.Context, records []domain.VectorRecord) error {
	if err := s.local.Add(ctx, records); err != nil {
		return err
	}
	if s.Downgraded() {
		return nil
	}

	seen := s.epoch.Load()
	err := s.remote.Add(ctx, records)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrStoreCorrupted) {
		logger.Warn("vector store: remote add of %d records failed: %v", len(records), err)
		return nil
	}

	if !s.recover(ctx, seen, err) {
		return nil
	}
	if err := s.remote.Add(ctx, records); err != nil {
		s.downgrade(fmt.Errorf("retry add after recovery: %w", err))
	}
	return nil
}

// Remove deletes from both backends. Remote errors are logged.
func (s *Store) Remove(ctx context.Context, documentID string) error {
	if err := s.local.Remove(ctx, documentID); err != nil {
		return err
	}
	if s.Downgraded() {
		return nil
	}
	if err := s.remote.Remove(ctx, documentID); err != nil {
		logger.Warn("vector store: remote remove of %s failed: %v", documentID, err)
	}
	return nil
}

// Search queries the remote, recovering once on corruption. Transient
// remote errors are answered from the mirror for that call only.
func (s *Store) Search(ctx context.Context, query []float32, filter domain.SearchFilter, max int) ([]domain.VectorHit, error) {
	if s.Downgraded() {
		return s.local.Search(ctx, query, filter, max)
	}

	seen := s.epoch.Load()
	hits, err := s.remote.Search(ctx, query, filter, max)
	if err == nil {
		return hits, nil
	}
	if errors.Is(err, domain.ErrDimensionMismatch) {
		return nil, err
	}
	if !errors.Is(err, domain.ErrStoreCorrupted) {
		logger.Warn("vector store: remote search failed, answering from memory: %v", err)
		return s.local.Search(ctx, query, filter, max)
	}

	if s.recover(ctx, seen, err) {
		hits, err = s.remote.Search(ctx, query, filter, max)
		if err == nil {
			return hits, nil
		}
		s.downgrade(fmt.Errorf("retry search after recovery: %w", err))
	}
	return s.local.Search(ctx, query, filter, max)
}

// recover runs one recovery cycle unless another caller already did so
// after seen was read. It reports whether the remote is usable for a retry.
func (s *Store) recover(ctx context.Context, seen uint64, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.downgraded.Load() {
		return false
	}
	if s.epoch.Load() != seen {
		return true
	}

	logger.Warn("vector store: remote reported corruption, recreating collection: %v", cause)
	if err := s.remote.Recreate(ctx); err != nil {
		s.downgradeLocked(fmt.Errorf("recreate: %w", err))
		return false
	}
	if records := s.local.Records(); len(records) > 0 {
		if err := s.remote.Add(ctx, records); err != nil {
			s.downgradeLocked(fmt.Errorf("reseed %d records: %w", len(records), err))
			return false
		}
	}
	s.epoch.Add(1)
	return true
}

func (s *Store) downgrade(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downgradeLocked(cause)
}

func (s *Store) downgradeLocked(cause error) {
	if s.downgraded.Swap(true) {
		return
	}
	logger.Error("vector store: downgrading to in-process store for the rest of this run: %v", cause)
}

// Dimensions returns the shared vector size.
func (s *Store) Dimensions() int {
	return s.local.Dimensions()
}

// Close releases both backends.
func (s *Store) Close() error {
	return errors.Join(s.remote.Close(), s.local.Close())
}
