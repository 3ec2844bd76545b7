package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int64]()

	err := c.Set(ctx, "count", 42, time.Minute)
	require.NoError(t, err)

	got, err := c.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
}

func TestMemoryCache_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int64]()

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	require.NoError(t, c.Set(ctx, "short", "value", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string]()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_StructValues(t *testing.T) {
	type binding struct {
		UID  string
		ADID string
	}

	ctx := context.Background()
	c := NewMemoryCache[binding]()

	want := binding{UID: "usr_x", ADID: "adid-1"}
	require.NoError(t, c.Set(ctx, "b", want, time.Minute))

	got, err := c.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetWithFetch_MissFetchesAndStores(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int64]()

	fetches := 0
	fetch := func(ctx context.Context, key string) (int64, error) {
		fetches++
		return 7, nil
	}

	got, err := GetWithFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, 1, fetches)

	// Second call is served from cache
	got, err = GetWithFetch(ctx, c, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	assert.Equal(t, 1, fetches)
}

func TestGetWithFetch_FetchError(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int64]()

	wantErr := errors.New("db down")
	_, err := GetWithFetch(ctx, c, "k", time.Minute, func(ctx context.Context, key string) (int64, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Errors are not cached
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_HealthAndClose(t *testing.T) {
	c := NewMemoryCache[int64]()
	assert.NoError(t, c.Health(context.Background()))
	assert.NoError(t, c.Close())
}
