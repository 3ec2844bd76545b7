package metrics

import (
	"context"
	"time"

	"github.com/Danticipation/chakrai/internal/cache"
)

// metricsStore defines the database operations needed by CacheWrapper.
// This interface allows for easier testing without requiring a full store.Store.
type metricsStore interface {
	CountActiveSessions(ctx context.Context) (int64, error)
	CountInstalls(ctx context.Context) (int64, error)
	CountUserDevices(ctx context.Context) (int64, error)
}

// CacheWrapper provides a read-through cache for metrics data.
// It queries the database on cache miss and updates the cache for subsequent
// requests, keeping the gauge refresh cheap in multi-instance deployments.
type CacheWrapper struct {
	store metricsStore
	cache cache.Cache[int64]
}

// NewCacheWrapper creates a new cache wrapper for metrics.
func NewCacheWrapper(store metricsStore, cache cache.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{
		store: store,
		cache: cache,
	}
}

// GetActiveSessionsCount retrieves the count of unrevoked sessions.
func (m *CacheWrapper) GetActiveSessionsCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "sessions:active", ttl, m.store.CountActiveSessions)
}

// GetInstallsCount retrieves the count of registered device installs.
func (m *CacheWrapper) GetInstallsCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "installs:total", ttl, m.store.CountInstalls)
}

// GetUserDevicesCount retrieves the count of user-device bindings.
func (m *CacheWrapper) GetUserDevicesCount(
	ctx context.Context,
	ttl time.Duration,
) (int64, error) {
	return m.getCountWithCache(ctx, "user_devices:total", ttl, m.store.CountUserDevices)
}

// getCountWithCache retrieves a count using the cache-aside pattern.
func (m *CacheWrapper) getCountWithCache(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFunc func(ctx context.Context) (int64, error),
) (int64, error) {
	return cache.GetWithFetch(
		ctx,
		m.cache,
		key,
		ttl,
		func(ctx context.Context, key string) (int64, error) {
			return fetchFunc(ctx)
		},
	)
}
