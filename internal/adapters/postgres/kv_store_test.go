package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/ghsession/internal/errors"
	"github.com/target/ghsession/internal/testutil"
)

func TestNewKVStore_RequiresDB(t *testing.T) {
	_, err := NewKVStore(nil)
	require.Error(t, err)
}

func TestKVStore_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store, err := NewKVStore(db)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		value, ok, err := store.GetItem(ctx, "@app:user")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("upsert and read", func(t *testing.T) {
		require.NoError(t, store.SetItem(ctx, "@app:token", "old"))
		require.NoError(t, store.SetItem(ctx, "@app:token", "new"))

		value, ok, err := store.GetItem(ctx, "@app:token")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "new", value)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		require.NoError(t, store.RemoveItem(ctx, "@app:token"))
		require.NoError(t, store.RemoveItem(ctx, "@app:token"))

		_, ok, err := store.GetItem(ctx, "@app:token")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		_, _, err := store.GetItem(ctx, "")
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
		defer cancel()
		time.Sleep(time.Millisecond)

		err := store.SetItem(cctx, "@app:user", "{}")
		require.Error(t, err)
		assert.True(t, apperrors.IsTimeout(err) || apperrors.IsCanceled(err))
	})
}
