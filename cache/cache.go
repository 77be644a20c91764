// Package cache provides a small TTL cache used for upstream credentials
// and access-token sessions. It replaces what would otherwise be bare
// module-level maps: the cache is an explicit value handed to its users, so
// tests can construct and expire their own.
package cache

import (
	"sync"
	"time"
)

// TTL is a mutex-guarded map whose entries expire after a fixed duration.
// An expired entry is never returned, even if eviction has not run yet.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTL creates a cache whose entries live for ttl.
func NewTTL[K comparable, V any](ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live value for key, if any.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.expiresAt.After(c.now()) {
		if ok {
			delete(c.entries, key)
		}
		var zero V
		return zero, false
	}

	return e.value, true
}

// Set stores value under key with a fresh TTL, replacing any prior entry.
func (c *TTL[K, V]) Set(key K, value V) {
	c.SetUntil(key, value, c.now().Add(c.ttl))
}

// SetUntil stores value under key with an explicit expiry, used when the
// value carries its own lifetime (an upstream credential, for example).
func (c *TTL[K, V]) SetUntil(key K, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// Evict removes key.
func (c *TTL[K, V]) Evict(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// SetClock replaces the cache clock, for tests.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
