package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token-1", "user-1", time.Minute))

	value, err := c.Get(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", value)

	_, err = c.Get(ctx, "token-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryCache_Expiry(t *testing.T) {
	c := NewInMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token-1", "user-1", -time.Second))

	_, err := c.Get(ctx, "token-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := NewInMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token-1", "user-1", time.Minute))
	require.NoError(t, c.Delete(ctx, "token-1"))

	_, err := c.Get(ctx, "token-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryCache_EvictsAtMaxSize(t *testing.T) {
	c := NewInMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "b", "2", time.Minute))
	require.NoError(t, c.Set(ctx, "c", "3", time.Minute))

	assert.LessOrEqual(t, c.Size(), 2)
}
