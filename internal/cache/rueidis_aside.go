package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidisaside"
)

var _ Cache[struct{}] = (*RueidisAsideCache[struct{}])(nil)

// RueidisAsideCache layers rueidisaside's client-side cache over Redis.
// Redis invalidates the local copies over RESP3 on writes, which keeps
// binding lookups hot across instances without manual busts. Meant for
// high-load multi-instance deployments.
type RueidisAsideCache[T any] struct {
	client    rueidisaside.CacheAsideClient
	prefix    string
	clientTTL time.Duration
}

// NewRueidisAsideCache connects with client-side caching enabled. clientTTL
// bounds how long a local copy may live before revalidation; Redis still
// invalidates eagerly on writes.
func NewRueidisAsideCache[T any](
	ctx context.Context,
	addr, password string,
	db int,
	keyPrefix string,
	clientTTL time.Duration,
	cacheSizeMB int,
) (*RueidisAsideCache[T], error) {
	client, err := rueidisaside.NewClient(rueidisaside.ClientOption{
		ClientOption: rueidis.ClientOption{
			InitAddress:       []string{addr},
			Password:          password,
			SelectDB:          db,
			CacheSizeEachConn: cacheSizeMB * 1024 * 1024,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rueidisaside client: %w", err)
	}

	c := &RueidisAsideCache[T]{client: client, prefix: keyPrefix, clientTTL: clientTTL}
	if err := c.Health(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

func (c *RueidisAsideCache[T]) key(k string) string { return c.prefix + k }

// Get reads through the client-side cache. The inner callback reports a
// miss instead of fetching, so the caller stays in charge of data sources.
func (c *RueidisAsideCache[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T

	raw, err := c.client.Get(ctx, c.clientTTL, c.key(key),
		func(ctx context.Context, key string) (string, error) {
			return "", ErrCacheMiss
		})
	if err != nil {
		if err == ErrCacheMiss {
			return zero, ErrCacheMiss
		}
		return zero, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if raw == "" {
		return zero, ErrCacheMiss
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

// Set writes through to Redis; connected clients drop their local copies.
func (c *RueidisAsideCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	cmd := c.client.Client().B().Set().Key(c.key(key)).Value(string(encoded)).Ex(ttl).Build()
	if err := c.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes a key, invalidating local copies everywhere.
func (c *RueidisAsideCache[T]) Delete(ctx context.Context, key string) error {
	cmd := c.client.Client().B().Del().Key(c.key(key)).Build()
	if err := c.client.Client().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection and the local cache.
func (c *RueidisAsideCache[T]) Close() error {
	c.client.Close()
	return nil
}

// Health pings Redis.
func (c *RueidisAsideCache[T]) Health(ctx context.Context) error {
	if err := c.client.Client().Do(ctx, c.client.Client().B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
