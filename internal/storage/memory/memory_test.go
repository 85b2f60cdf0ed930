package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posto/internal/storage"
	"posto/internal/storage/memory"
)

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "token-1"))

	got, err := store.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "token-1", got)

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "token-2"))

	got, err = store.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "token-2", got)
}

func TestGet_Missing(t *testing.T) {
	store := memory.New()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClear_RemovesAllKeysTogether(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "a"))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "r"))
	require.NoError(t, store.Set(ctx, storage.KeyUserData, "{}"))

	require.NoError(t, store.Clear(ctx))

	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserData} {
		_, err := store.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}
}
