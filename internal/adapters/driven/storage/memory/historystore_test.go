package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

func seedHistory(t *testing.T, store *HistoryStore, base time.Time, ids ...string) {
	t.Helper()
	for i, id := range ids {
		rec := &domain.QueryRecord{
			ID:        id,
			Query:     "q-" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Save(context.Background(), rec))
	}
}

func TestHistoryStore_ListNewestFirst(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	seedHistory(t, store, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "h1", "h2", "h3")

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "h3", all[0].ID)
	assert.Equal(t, "h1", all[2].ID)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "h3", limited[0].ID)
	assert.Equal(t, "h2", limited[1].ID)
}

func TestHistoryStore_GetAndDelete(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	seedHistory(t, store, time.Now(), "h1")

	rec, err := store.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "q-h1", rec.Query)

	require.NoError(t, store.Delete(ctx, "h1"))
	_, err = store.Get(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryStore_DeleteOlderThan(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedHistory(t, store, base, "h1", "h2", "h3")

	n, err := store.DeleteOlderThan(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "h3", remaining[0].ID)
}
