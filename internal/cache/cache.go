// Package cache provides a small TTL-based lookup cache keyed by string.
// It shortcuts repeated point lookups (customer/user by email) so the hot
// read path does not hit the database on every request.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a shared in-process cache with absolute expiration.
// Safe for concurrent Get/Set/Invalidate; last writer wins on a key.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
}

func New[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]entry[V])}
}

// Get returns the cached value for key if present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && time.Now().Before(e.expiresAt) {
		return e.value, true
	}
	if ok {
		// Expired entry: drop it so the map does not grow unbounded.
		c.mu.Lock()
		if cur, still := c.entries[key]; still && !time.Now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}
	var zero V
	return zero, false
}

// Set stores value under key, expiring ttl from now.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes a key. Call this whenever the underlying entity is
// deleted so a later Get cannot serve stale data.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll clears the entire cache.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}
