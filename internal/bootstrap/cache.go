package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/Danticipation/chakrai/internal/cache"
	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/models"
)

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) metrics.Recorder {
	prometheusMetrics := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return prometheusMetrics
}

// initializeMetricsCache initializes the cache backing gauge refresh queries.
// Returns nil when gauge updates are disabled.
func initializeMetricsCache(
	ctx context.Context,
	cfg *config.Config,
) (cache.Cache[int64], func() error, error) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return nil, nil, nil
	}
	return newCache[int64](ctx, cfg, "chakrai:metrics:", "Metrics cache")
}

// initializeBindingCache initializes the cache for user-device binding lookups
func initializeBindingCache(
	ctx context.Context,
	cfg *config.Config,
) (cache.Cache[models.UserDevice], func() error, error) {
	return newCache[models.UserDevice](ctx, cfg, "chakrai:bindings:", "Binding cache")
}

// newCache builds a cache of the configured type with the given key prefix
func newCache[T any](
	ctx context.Context,
	cfg *config.Config,
	keyPrefix, name string,
) (cache.Cache[T], func() error, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.CacheInitTimeout)
	defer cancel()

	switch cfg.CacheType {
	case config.CacheTypeRedisAside:
		c, err := cache.NewRueidisAsideCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			keyPrefix,
			cfg.CacheClientTTL,
			cfg.CacheSizePerConn,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis-aside cache %s: %w", keyPrefix, err)
		}
		log.Printf(
			"%s: redis-aside (addr=%s, db=%d, client_ttl=%s, cache_size_per_conn=%dMB)",
			name, cfg.RedisAddr, cfg.RedisDB, cfg.CacheClientTTL, cfg.CacheSizePerConn,
		)
		return c, c.Close, nil

	case config.CacheTypeRedis:
		c, err := cache.NewRueidisCache[T](
			ctx,
			cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			keyPrefix,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis cache %s: %w", keyPrefix, err)
		}
		log.Printf("%s: redis (addr=%s, db=%d)", name, cfg.RedisAddr, cfg.RedisDB)
		return c, c.Close, nil

	default: // memory
		c := cache.NewMemoryCache[T]()
		log.Printf("%s: memory (single instance only)", name)
		return c, c.Close, nil
	}
}
