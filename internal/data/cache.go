package data

import (
	"context"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ResultCache keeps computed results in memory for a fixed TTL so that
// follow-up requests (ledger download, export) can refer to a run by ID.
// A nil *ResultCache is a valid, always-empty cache.
type ResultCache[V any] struct {
	mu    sync.RWMutex
	store map[string]cacheEntry[V]
	ttl   time.Duration
	now   func() time.Time
}

// NewResultCache creates a cache and starts a janitor that removes expired
// entries every sweep until ctx is done. A non-positive sweep disables the
// janitor; expired entries are then only hidden, not freed.
func NewResultCache[V any](ctx context.Context, ttl, sweep time.Duration) *ResultCache[V] {
	c := &ResultCache[V]{
		store: map[string]cacheEntry[V]{},
		ttl:   ttl,
		now:   time.Now,
	}
	if sweep > 0 {
		go c.cleanup(ctx, sweep)
	}
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return zero, false
	}
	return entry.value, true
}

// Set stores value under key.
func (c *ResultCache[V]) Set(key string, value V) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

func (c *ResultCache[V]) Delete(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Len counts stored entries, expired ones included until swept.
func (c *ResultCache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *ResultCache[V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = map[string]cacheEntry[V]{}
}

// sweep drops expired entries.
func (c *ResultCache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

// cleanup periodically removes expired entries
func (c *ResultCache[V]) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}
