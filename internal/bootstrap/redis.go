package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// initializeRateLimitRedisClient builds the shared go-redis client the
// rate-limit middleware stores use. ulule/limiter's redis store is written
// against go-redis types, so this client exists separately from the rueidis
// cache clients. Returns nil when no configuration needs it.
func initializeRateLimitRedisClient(
	ctx context.Context,
	cfg *config.Config,
) (*redis.Client, error) {
	if !cfg.EnableRateLimit {
		return nil, nil //nolint:nilnil // nothing to connect to
	}
	if cfg.RateLimitStore != string(middleware.RateLimitStoreRedis) {
		return nil, nil //nolint:nilnil // memory store needs no client
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.RedisConnTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Printf("Rate limit redis client connected (address: %s, db: %d)", cfg.RedisAddr, cfg.RedisDB)
	return client, nil
}
