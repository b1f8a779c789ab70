package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	b, err := NewSQLite(context.Background(), ":memory:", WithExpiryCheck(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestSQLiteSetGet(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	data, err := b.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	data, err = b.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	require.NoError(t, b.Set(ctx, "k", []byte("v2"), time.Minute))
	data, err = b.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestSQLiteExpiry(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	data, err := b.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLiteGetWithTTL(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	data, ttl, err := b.GetWithTTL(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, b.Set(ctx, "forever", []byte("v"), 0))
	_, ttl, err = b.GetWithTTL(ctx, "forever")
	assert.NoError(t, err)
	assert.Equal(t, TTLUnknown, ttl)
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	require.NoError(t, b.Set(ctx, "app:a:1", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "app:a:2", []byte("2"), time.Minute))
	require.NoError(t, b.Set(ctx, "app:b:1", []byte("3"), time.Minute))

	count, err := b.Clear(ctx, "app:a:")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	data, _ := b.Get(ctx, "app:a:1")
	assert.Nil(t, data)
	data, _ = b.Get(ctx, "app:b:1")
	assert.Equal(t, []byte("3"), data)
}

func TestSQLiteClearEscapesPattern(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	// A literal % in the prefix must not act as a LIKE wildcard.
	require.NoError(t, b.Set(ctx, "app:100%:1", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "app:100x:1", []byte("2"), time.Minute))

	count, err := b.Clear(ctx, "app:100%")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	data, _ := b.Get(ctx, "app:100x:1")
	assert.Equal(t, []byte("2"), data)
}

func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/cache.db"

	b, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, b.Close())

	b, err = NewSQLite(ctx, path)
	require.NoError(t, err)
	defer b.Close()
	data, err := b.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}
