package memory

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = 5 * time.Minute

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (it item[V]) expired(now time.Time) bool {
	return now.After(it.expiresAt)
}

// Cache - in-memory TTL cache
type Cache[V any] struct {
	mu       sync.RWMutex
	items    map[string]item[V]
	stopChan chan struct{}
	stopOnce sync.Once
}

func New[V any]() *Cache[V] {
	return NewWithContext[V](context.Background(), defaultCleanupInterval)
}

func NewWithContext[V any](ctx context.Context, cleanupInterval time.Duration) *Cache[V] {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	c := &Cache[V]{
		items:    make(map[string]item[V]),
		stopChan: make(chan struct{}),
	}
	go c.cleanup(ctx, cleanupInterval)
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || it.expired(time.Now()) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// SetIfAbsent stores value only when key is missing or expired and reports
// whether it did. Check and store happen under one lock.
func (c *Cache[V]) SetIfAbsent(key string, value V, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if it, ok := c.items[key]; ok && !it.expired(now) {
		return false
	}
	c.items[key] = item[V]{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts entries including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Cache[V]) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, it := range c.items {
		if it.expired(now) {
			delete(c.items, k)
		}
	}
}
