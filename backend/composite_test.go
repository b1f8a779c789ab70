package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeGetFirstHit(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	defer l1.Close()
	l2 := NewInMemory(ctx)
	defer l2.Close()
	c := NewComposite(l1, l2)

	require.NoError(t, l1.Set(ctx, "k", []byte("l1"), time.Minute))
	require.NoError(t, l2.Set(ctx, "k", []byte("l2"), time.Minute))

	data, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("l1"), data)
}

func TestCompositePromotesLaterTierHits(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	defer l1.Close()
	l2 := NewInMemory(ctx)
	defer l2.Close()
	c := NewComposite(l1, l2)

	require.NoError(t, l2.Set(ctx, "k", []byte("v"), time.Minute))

	data, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)

	// The hit must now be available from the first tier directly.
	data, err = l1.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}

func TestCompositeSetWritesAllTiers(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	defer l1.Close()
	l2 := NewInMemory(ctx)
	defer l2.Close()
	c := NewComposite(l1, l2)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	data, _ := l1.Get(ctx, "k")
	assert.Equal(t, []byte("v"), data)
	data, _ = l2.Get(ctx, "k")
	assert.Equal(t, []byte("v"), data)
}

func TestCompositeClearSumsCounts(t *testing.T) {
	ctx := context.Background()
	l1 := NewInMemory(ctx)
	defer l1.Close()
	l2 := NewInMemory(ctx)
	defer l2.Close()
	c := NewComposite(l1, l2)

	require.NoError(t, l1.Set(ctx, "ns:1", []byte("a"), time.Minute))
	require.NoError(t, l2.Set(ctx, "ns:1", []byte("a"), time.Minute))
	require.NoError(t, l2.Set(ctx, "ns:2", []byte("b"), time.Minute))

	count, err := c.Clear(ctx, "ns:")
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCompositeRequiresBackends(t *testing.T) {
	assert.Panics(t, func() { NewComposite() })
}
