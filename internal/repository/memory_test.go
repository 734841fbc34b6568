package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	value, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 0))

	value, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, cache.Delete(ctx, "k"))
	value, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemoryCacheTTL(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 20*time.Millisecond))

	value, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, value)

	time.Sleep(30 * time.Millisecond)

	value, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	original := []byte("abc")
	require.NoError(t, cache.Set(ctx, "k", original, 0))
	original[0] = 'x'

	value, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), value)

	value[0] = 'y'
	again, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
