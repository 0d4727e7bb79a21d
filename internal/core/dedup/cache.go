// Package dedup collapses bursts of identical requests into one computation and
// serves the result to repeats that arrive within a short freshness window.
package dedup

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultWindow     = 2 * time.Second
	DefaultMaxEntries = 4096
)

type Config struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

type entry[V any] struct {
	value      V
	computedAt time.Time
	expiresAt  time.Time
}

// Cache is safe for concurrent use. Errors are never cached.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	group   singleflight.Group

	window     time.Duration
	maxEntries int
	now        func() time.Time
}

func New[K comparable, V any](cfg Config) *Cache[K, V] {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache[K, V]{
		entries:    make(map[K]entry[V]),
		window:     cfg.Window,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Now,
	}
}

// GetOrCompute returns the stored value for key when it is younger than window;
// otherwise it runs compute, stores the result and returns it. Concurrent callers
// missing on the same key share a single compute call. The boolean reports whether
// the value was produced by someone else's computation.
func (c *Cache[K, V]) GetOrCompute(key K, window time.Duration, compute func() (V, error)) (V, bool, error) {
	if window <= 0 {
		window = c.window
	}
	if v, ok := c.fresh(key, window); ok {
		return v, true, nil
	}

	computed := false
	res, err, _ := c.group.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.fresh(key, window); ok {
			return v, nil
		}
		computed = true
		v, err := compute()
		if err != nil {
			return v, err
		}
		c.store(key, v, window)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}
	return res.(V), !computed, nil
}

func (c *Cache[K, V]) fresh(key K, window time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.computedAt) >= window {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) store(key K, value V, window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}
	c.entries[key] = entry[V]{value: value, computedAt: now, expiresAt: now.Add(window)}
}

// Forget drops every entry whose key matches and reports how many were dropped.
func (c *Cache[K, V]) Forget(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Purge removes entries past their freshness window.
func (c *Cache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[K, V]) purgeLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

func (c *Cache[K, V]) evictOldestLocked() {
	var (
		oldestKey K
		oldestAt  time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.computedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.computedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
