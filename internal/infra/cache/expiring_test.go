package cache

import (
	"sync"
	"testing"
	"time"
)

func TestExpiringCacheRoundTrip(t *testing.T) {
	c := New[string]()

	c.Set("greeting", "hello", time.Minute)

	got, ok := c.Get("greeting")
	if !ok {
		t.Fatal("expected a hit immediately after set")
	}
	if got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestExpiringCacheExpiry(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[int]().WithClock(func() time.Time { return now })

	c.Set("counter", 42, time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("counter"); !ok {
		t.Fatal("expected a hit before the TTL elapsed")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get("counter"); ok {
		t.Fatal("expected a miss once elapsed time reached the TTL")
	}
}

func TestExpiringCacheExpiredEntryEvictedOnRead(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[int]().WithClock(func() time.Time { return now })

	c.Set("counter", 1, time.Second)
	now = now.Add(2 * time.Second)

	if _, ok := c.Get("counter"); ok {
		t.Fatal("expected a miss for the expired entry")
	}
	if stats := c.Stats(); stats.Size != 0 {
		t.Fatalf("expected lazy eviction on read, size = %d", stats.Size)
	}
}

func TestExpiringCacheDelete(t *testing.T) {
	c := New[string]()
	c.Set("a", "1", time.Minute)

	if !c.Delete("a") {
		t.Fatal("expected delete of existing key to report true")
	}
	if c.Delete("a") {
		t.Fatal("expected delete of missing key to report false")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a miss after delete")
	}
}

func TestExpiringCacheDeleteRemovesExpiredEntry(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[string]().WithClock(func() time.Time { return now })

	c.Set("a", "1", time.Second)
	now = now.Add(time.Minute)

	// Logically expired but not yet swept: delete still reports removal.
	if !c.Delete("a") {
		t.Fatal("expected delete to remove the unswept expired entry")
	}
}

func TestExpiringCacheClear(t *testing.T) {
	c := New[string]()
	c.Set("a", "1", time.Minute)
	c.Set("b", "2", time.Minute)

	c.Clear()

	if stats := c.Stats(); stats.Size != 0 {
		t.Fatalf("expected empty cache after clear, size = %d", stats.Size)
	}
}

func TestExpiringCacheStatsConsistency(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[string]().WithClock(func() time.Time { return now })

	c.Set("live-1", "v", time.Hour)
	c.Set("live-2", "v", time.Hour)
	c.Set("dead-1", "v", time.Second)

	now = now.Add(time.Minute)

	stats := c.Stats()
	if stats.Size != 3 {
		t.Fatalf("expected size 3, got %d", stats.Size)
	}
	if stats.Expired != 1 {
		t.Fatalf("expected 1 expired entry, got %d", stats.Expired)
	}
	if stats.Valid+stats.Expired != stats.Size {
		t.Fatalf("stats invariant broken: %d + %d != %d", stats.Valid, stats.Expired, stats.Size)
	}
}

func TestExpiringCacheInvalidateByPattern(t *testing.T) {
	c := New[string]()
	c.Set("user:42:forecast:a", "v", time.Minute)
	c.Set("user:42:forecast:b", "v", time.Minute)
	c.Set("user:7:forecast:a", "v", time.Minute)
	c.Set("user:421:forecast:a", "v", time.Minute)

	removed := c.InvalidateByPattern("user:42:*")
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}

	if _, ok := c.Get("user:7:forecast:a"); !ok {
		t.Fatal("expected unrelated user key to survive")
	}
	if _, ok := c.Get("user:421:forecast:a"); !ok {
		t.Fatal("expected key with shared digit prefix to survive")
	}
}

func TestExpiringCacheInvalidateByPatternNoMatch(t *testing.T) {
	c := New[string]()
	c.Set("user:42:forecast:a", "v", time.Minute)

	if removed := c.InvalidateByPattern("user:99:*"); removed != 0 {
		t.Fatalf("expected 0 removals for a miss pattern, got %d", removed)
	}
	if removed := c.InvalidateByPattern(""); removed != 0 {
		t.Fatalf("expected empty pattern to match nothing, got %d removals", removed)
	}
}

func TestExpiringCacheSetNonPositiveTTL(t *testing.T) {
	c := New[string]()
	c.Set("a", "1", 0)
	c.Set("b", "2", -time.Second)

	if stats := c.Stats(); stats.Size != 0 {
		t.Fatalf("expected non-positive TTLs to store nothing, size = %d", stats.Size)
	}
}

func TestExpiringCacheSweep(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[string]().WithClock(func() time.Time { return now })

	c.Set("dead-1", "v", time.Second)
	c.Set("dead-2", "v", 2*time.Second)
	c.Set("live", "v", time.Hour)

	now = now.Add(time.Minute)

	if evicted := c.Sweep(); evicted != 2 {
		t.Fatalf("expected 2 evictions, got %d", evicted)
	}
	if stats := c.Stats(); stats.Size != 1 || stats.Valid != 1 {
		t.Fatalf("expected one live entry after sweep, got %+v", stats)
	}
}

func TestExpiringCacheUpdateIsAtomic(t *testing.T) {
	c := New[int]()

	const workers = 64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			c.Update("counter", func(current int, ok bool) (int, time.Duration) {
				return current + 1, time.Minute
			})
		}()
	}
	wg.Wait()

	got, ok := c.Get("counter")
	if !ok {
		t.Fatal("expected counter to exist")
	}
	if got != workers {
		t.Fatalf("lost updates: expected %d, got %d", workers, got)
	}
}

func TestExpiringCacheUpdateSeesExpiredAsAbsent(t *testing.T) {
	now := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	c := New[int]().WithClock(func() time.Time { return now })

	c.Set("counter", 10, time.Second)
	now = now.Add(time.Minute)

	c.Update("counter", func(current int, ok bool) (int, time.Duration) {
		if ok {
			t.Fatal("expected expired entry to be absent inside Update")
		}
		return 1, time.Minute
	})

	if got, _ := c.Get("counter"); got != 1 {
		t.Fatalf("expected restarted counter 1, got %d", got)
	}
}

func TestExpiringCacheConcurrentReadsAndWrites(t *testing.T) {
	c := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("shared", n, time.Minute)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get("shared")
				c.Stats()
			}
		}()
	}
	wg.Wait()

	if _, ok := c.Get("shared"); !ok {
		t.Fatal("expected the shared key to exist after concurrent writes")
	}
}

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"user:42:*", "user:42:forecast:a", true},
		{"user:42:*", "user:421:forecast:a", false},
		{"user:*:forecast:*", "user:7:forecast:x", true},
		{"user:*:forecast:*", "user:7:summary:x", false},
		{"exact", "exact", true},
		{"exact", "exact2", false},
		{"*", "anything", true},
		{"", "anything", false},
		{"a*a", "a", false},
		{"a*a", "aa", true},
	}

	for _, tc := range cases {
		if got := matchPattern(tc.pattern, tc.key); got != tc.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}
