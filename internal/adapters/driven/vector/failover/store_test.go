package failover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/logger"
)

var errCorrupt = fmt.Errorf("%w: segment panicked", domain.ErrStoreCorrupted)

// mockRemote is a RecoverableStore whose failures are scripted per call.
type mockRemote struct {
	*memory.Store

	addErr      func() error
	searchErr   func() error
	addCalls    atomic.Int32
	searchCalls atomic.Int32
	recreates   atomic.Int32
	recreateErr error
}

func newMockRemote(t *testing.T) *mockRemote {
	t.Helper()
	m, err := memory.NewStore(2)
	require.NoError(t, err)
	return &mockRemote{Store: m}
}

func (m *mockRemote) Add(ctx context.Context, records []domain.VectorRecord) error {
	m.addCalls.Add(1)
	if m.addErr != nil {
		if err := m.addErr(); err != nil {
			return err
		}
	}
	return m.Store.Add(ctx, records)
}

func (m *mockRemote) Search(ctx context.Context, q []float32, f domain.SearchFilter, max int) ([]domain.VectorHit, error) {
	m.searchCalls.Add(1)
	if m.searchErr != nil {
		if err := m.searchErr(); err != nil {
			return nil, err
		}
	}
	return m.Store.Search(ctx, q, f, max)
}

func (m *mockRemote) Recreate(context.Context) error {
	m.recreates.Add(1)
	return m.recreateErr
}

func (m *mockRemote) Ping(context.Context) error { return nil }

func rec(id, docID string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{ID: id, Vector: vec, Text: id, Metadata: map[string]any{domain.MetaDocumentID: docID}}
}

func newFailover(t *testing.T, remote *mockRemote) *Store {
	t.Helper()
	logger.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	local, err := memory.NewStore(2)
	require.NoError(t, err)
	s, err := New(remote, local)
	require.NoError(t, err)
	return s
}

func TestNew_DimensionMismatch(t *testing.T) {
	local, _ := memory.NewStore(3)
	_, err := New(newMockRemote(t), local)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_HealthyRemote(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))
	hits, err := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.False(t, s.Downgraded())
	assert.Equal(t, int32(1), remote.searchCalls.Load())
	assert.Equal(t, 1, remote.Len())
}

func TestStore_AlwaysCorruptAddDowngrades(t *testing.T) {
	remote := newMockRemote(t)
	remote.addErr = func() error { return errCorrupt }
	s := newFailover(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))
	assert.True(t, s.Downgraded())
	assert.Equal(t, int32(1), remote.recreates.Load())

	callsAtDowngrade := remote.addCalls.Load()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("b:0", "b", 0, 1)}))
	hits, err := s.Search(ctx, []float32{0, 1}, domain.SearchFilter{}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b:0", hits[0].Record.ID)

	assert.Equal(t, callsAtDowngrade, remote.addCalls.Load(), "no remote add after downgrade")
	assert.Zero(t, remote.searchCalls.Load(), "no remote search after downgrade")
	assert.Equal(t, int32(1), remote.recreates.Load())
}

func TestStore_RecoveryReseedsAndRetries(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))

	var failed atomic.Bool
	remote.searchErr = func() error {
		if failed.CompareAndSwap(false, true) {
			return errCorrupt
		}
		return nil
	}

	hits, err := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.False(t, s.Downgraded())
	assert.Equal(t, int32(1), remote.recreates.Load())
	assert.Equal(t, int32(2), remote.searchCalls.Load())
}

func TestStore_RecreateFailureDowngrades(t *testing.T) {
	remote := newMockRemote(t)
	remote.searchErr = func() error { return errCorrupt }
	remote.recreateErr = errors.New("permission denied")
	s := newFailover(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))

	hits, err := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1, "mirror answers after downgrade")
	assert.True(t, s.Downgraded())
}

func TestStore_TransientSearchErrorUsesMirrorWithoutDowngrade(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))

	remote.searchErr = func() error { return fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable) }

	hits, err := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.False(t, s.Downgraded())
	assert.Zero(t, remote.recreates.Load())
}

func TestStore_ConcurrentFailuresRecoverOnce(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0)}))

	remote.searchErr = func() error {
		if remote.recreates.Load() == 0 {
			return errCorrupt
		}
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{}, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), remote.recreates.Load())
	assert.False(t, s.Downgraded())
}

func TestStore_Remove(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorRecord{rec("a:0", "a", 1, 0), rec("b:0", "b", 0, 1)}))
	require.NoError(t, s.Remove(ctx, "a"))

	assert.Equal(t, 1, remote.Len())
	hits, _ := s.Search(ctx, []float32{1, 0}, domain.SearchFilter{DocumentID: "a"}, 5)
	assert.Empty(t, hits)
}

func TestStore_AddDimensionMismatch(t *testing.T) {
	remote := newMockRemote(t)
	s := newFailover(t, remote)

	err := s.Add(context.Background(), []domain.VectorRecord{rec("a:0", "a", 1)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Zero(t, remote.addCalls.Load())
}
