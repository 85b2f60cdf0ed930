package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posto/internal/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "posto.db")

	store, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.db.Exec(`CREATE TABLE session_state (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
	require.NoError(t, err)

	return store
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "token-1"))

	got, err := store.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "token-1", got)
}

func TestSet_Overwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "old"))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "new"))

	got, err := store.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestGet_Missing(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClear_RemovesAllKeysTogether(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "a"))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "r"))
	require.NoError(t, store.Set(ctx, storage.KeyUserData, "{}"))

	require.NoError(t, store.Clear(ctx))

	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserData} {
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}

	// Clearing an already-empty store is a no-op, not an error.
	require.NoError(t, store.Clear(ctx))
}
