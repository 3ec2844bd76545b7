package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitStoreType selects where rate-limit counters live.
type RateLimitStoreType string

const (
	// RateLimitStoreMemory keeps counters in process (single instance only).
	RateLimitStoreMemory RateLimitStoreType = "memory"
	// RateLimitStoreRedis shares counters across instances.
	RateLimitStoreRedis RateLimitStoreType = "redis"
)

// RateLimitConfig configures a per-client-IP limiter. The install and
// session endpoints each get their own limiter so registration abuse
// cannot starve session traffic.
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // memory store only

	StoreType RateLimitStoreType

	// RedisClient is the shared go-redis client, required for the redis
	// store. The middleware never dials redis itself.
	RedisClient *redis.Client
}

// NewRateLimiter builds a gin middleware enforcing cfg's per-minute rate.
func NewRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	store, err := newLimiterStore(cfg)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, limiter.Rate{
		Period: time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	})

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
		c.Abort()
	})), nil
}

func newLimiterStore(cfg RateLimitConfig) (limiter.Store, error) {
	switch cfg.StoreType {
	case RateLimitStoreRedis:
		if cfg.RedisClient == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		store, err := limiterRedis.NewStoreWithOptions(cfg.RedisClient, limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		return store, nil
	default:
		// Unknown store types fall back to memory rather than failing
		// startup; the memory store is always safe for a single instance.
		return memory.NewStore(), nil
	}
}

// NewMemoryRateLimiter is the single-instance convenience constructor.
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}

// NewRedisRateLimiter shares counters across instances through client.
func NewRedisRateLimiter(requestsPerMinute int, client *redis.Client) (gin.HandlerFunc, error) {
	return NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         RateLimitStoreRedis,
		RedisClient:       client,
		CleanupInterval:   5 * time.Minute,
	})
}
