package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	createdAt time.Time
	expiresAt time.Time
}

// Stats reports the composition of the store at a point in time. Size counts
// every held entry including expired-but-unswept ones, so Valid + Expired ==
// Size always holds.
type Stats struct {
	Size    int
	Expired int
	Valid   int
}

// ExpiringCache is a TTL-keyed in-memory store. Entries expire lazily: an
// expired entry is treated as absent on read and physically removed on the
// next sweep, Delete, or overwrite. A single RWMutex guards the map; reads
// run concurrently, every mutation is serialized.
type ExpiringCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs an empty cache.
func New[T any]() *ExpiringCache[T] {
	return &ExpiringCache[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (c *ExpiringCache[T]) WithClock(now func() time.Time) *ExpiringCache[T] {
	if now != nil {
		c.now = now
	}
	return c
}

// WithSweepInterval starts a background sweeper that evicts expired entries
// every interval. Sweeping bounds memory; it is not needed for correctness.
func (c *ExpiringCache[T]) WithSweepInterval(interval time.Duration) *ExpiringCache[T] {
	if interval <= 0 || c.stop != nil {
		return c
	}
	c.stop = make(chan struct{})
	go c.sweepLoop(interval)
	return c
}

// Close stops the background sweeper, if one was started. Safe to call more
// than once.
func (c *ExpiringCache[T]) Close() {
	if c.stop == nil {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
}

// Get returns the value stored under key if it has not expired.
func (c *ExpiringCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		c.evictExpired(key)
		return zero, false
	}
	return e.value, true
}

// Set inserts or replaces the entry under key with the provided TTL. Values
// with a non-positive TTL are never stored.
func (c *ExpiringCache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[T]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Update applies fn to the current entry under the store's write lock and
// stores the result with the TTL fn returns. The callback sees (zero, false)
// when no live entry exists. This is the single critical section callers use
// for read-modify-write sequences; two concurrent updates of the same key
// can never lose an increment.
func (c *ExpiringCache[T]) Update(key string, fn func(current T, ok bool) (T, time.Duration)) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	var current T
	ok := false
	if e, found := c.entries[key]; found && now.Before(e.expiresAt) {
		current = e.value
		ok = true
	}

	value, ttl := fn(current, ok)
	if ttl <= 0 {
		delete(c.entries, key)
		return value
	}

	c.entries[key] = entry[T]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	return value
}

// Delete removes the entry under key, expired or not, and reports whether
// anything was removed.
func (c *ExpiringCache[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear removes every entry.
func (c *ExpiringCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// InvalidateByPattern removes every key matching pattern and returns how many
// were removed. Pattern syntax is literal text with '*' matching any run of
// characters; a pattern that matches nothing (including an empty pattern)
// returns 0.
func (c *ExpiringCache[T]) InvalidateByPattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if matchPattern(pattern, key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns the current store composition. Diagnostics only.
func (c *ExpiringCache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := Stats{Size: len(c.entries)}
	for _, e := range c.entries {
		if !now.Before(e.expiresAt) {
			stats.Expired++
		}
	}
	stats.Valid = stats.Size - stats.Expired
	return stats
}

// Sweep removes every expired entry immediately and returns how many were
// evicted.
func (c *ExpiringCache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

func (c *ExpiringCache[T]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// evictExpired removes the entry under key if it is still expired once the
// write lock is held. Get observed expiry under the read lock; the entry may
// have been replaced in between.
func (c *ExpiringCache[T]) evictExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
	}
}
