package cache

import (
	"context"
	"sync"
	"time"
)

var _ Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// MemoryCache is an in-process Cache for single-instance deployments.
// Expiry is lazy: stale entries are dropped when Get observes them.
type MemoryCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
}

type memoryEntry[T any] struct {
	value    T
	deadline time.Time
}

func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{entries: make(map[string]memoryEntry[T])}
}

// Get returns the value for key, or ErrCacheMiss if absent or expired.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		var zero T
		return zero, ErrCacheMiss
	}
	if time.Now().After(entry.deadline) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		var zero T
		return zero, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores value under key until ttl elapses.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry[T]{value: value, deadline: time.Now().Add(ttl)}
	return nil
}

// Delete removes key. Removing an absent key is not an error.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Close is a no-op; there is no external resource to release.
func (m *MemoryCache[T]) Close() error { return nil }

// Health always succeeds.
func (m *MemoryCache[T]) Health(ctx context.Context) error { return nil }
