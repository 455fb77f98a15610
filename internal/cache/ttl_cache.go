package cache

import (
	"context"
	"sync"
	"time"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

// TTLCache is a goroutine-safe map with per-entry expiry. Expired entries are
// invisible to readers and physically removed by PurgeExpired or by the
// janitor started with Run.
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
}

// New constructs an empty TTLCache.
func New[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{items: make(map[K]entry[V])}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

func (e entry[V]) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && at.After(e.expiresAt)
}

// Get returns the value and whether it was present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(now()) {
		return zero, false
	}
	return e.value, true
}

// Set stores the value. If ttl <= 0, the entry does not expire.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

// SetUntil stores the value until the given instant. An instant in the past
// is a no-op.
func (c *TTLCache[K, V]) SetUntil(key K, value V, until time.Time) {
	ttl := until.Sub(now())
	if ttl <= 0 {
		return
	}
	c.Set(key, value, ttl)
}

// Has reports whether a key is present and not expired.
func (c *TTLCache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes a key if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts only non-expired entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := 0
	at := now()
	for _, e := range c.items {
		if !e.expired(at) {
			count++
		}
	}
	return count
}

// PurgeExpired removes expired entries and returns how many were dropped.
func (c *TTLCache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := now()
	purged := 0
	for k, e := range c.items {
		if e.expired(at) {
			delete(c.items, k)
			purged++
		}
	}
	return purged
}

// Run purges expired entries every interval until ctx is done.
func (c *TTLCache[K, V]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PurgeExpired()
		}
	}
}
