package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/ghsession/internal/errors"
	"github.com/target/ghsession/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestKVStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "@app:user", `{"id":"1","login":"l"}`))
	require.NoError(t, store.SetItem(ctx, "@app:token", "T"))

	user, ok, err := store.GetItem(ctx, "@app:user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1","login":"l"}`, user)

	token, ok, err := store.GetItem(ctx, "@app:token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "T", token)
}

func TestKVStore_GetMissing(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{})

	value, ok, err := store.GetItem(context.Background(), "@app:user")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestKVStore_Overwrite(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "@app:token", "old"))
	require.NoError(t, store.SetItem(ctx, "@app:token", "new"))

	token, _, err := store.GetItem(ctx, "@app:token")
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestKVStore_RemoveIsIdempotent(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{})
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "@app:token", "T"))
	require.NoError(t, store.RemoveItem(ctx, "@app:token"))
	require.NoError(t, store.RemoveItem(ctx, "@app:token"))
	require.NoError(t, store.RemoveItem(ctx, ""))

	_, ok, err := store.GetItem(ctx, "@app:token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_Prefix(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	prefixed := NewKVStore(client, KVStoreOptions{Prefix: "test-prefix:"})
	require.NoError(t, prefixed.SetItem(ctx, "@app:user", "{}"))
	assert.Equal(t, int64(1), client.Exists(ctx, "test-prefix:@app:user").Val())

	bare := NewKVStore(client, KVStoreOptions{Prefix: "-"})
	require.NoError(t, bare.SetItem(ctx, "@app:user", "{}"))
	assert.Equal(t, int64(1), client.Exists(ctx, "@app:user").Val())

	def := NewKVStore(client, KVStoreOptions{})
	require.NoError(t, def.SetItem(ctx, "@app:user", "{}"))
	assert.Equal(t, int64(1), client.Exists(ctx, DefaultPrefix+"@app:user").Val())
}

func TestKVStore_TTL(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{TTL: 100 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "@app:token", "T"))
	time.Sleep(200 * time.Millisecond)

	_, ok, err := store.GetItem(ctx, "@app:token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_EmptyKey(t *testing.T) {
	client := setupTestRedis(t)

	store := NewKVStore(client, KVStoreOptions{})
	ctx := context.Background()

	_, _, err := store.GetItem(ctx, "")
	assert.True(t, apperrors.IsValidation(err))

	err = store.SetItem(ctx, "", "v")
	assert.True(t, apperrors.IsValidation(err))
}

func TestKVStore_ClosedClient(t *testing.T) {
	client := setupTestRedis(t)
	store := NewKVStore(client, KVStoreOptions{})
	require.NoError(t, client.Close())

	_, _, err := store.GetItem(context.Background(), "@app:user")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}
