package throttle

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func testTracker(t *testing.T, cfg Config, start time.Time) (*Tracker, *time.Time) {
	t.Helper()

	now := start
	tracker := NewTracker(cfg, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })
	return tracker, &now
}

func TestTrackerCleanBelowThreshold(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 5}, start)

	for i := 0; i < 4; i++ {
		tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	}

	status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
	if status.IsDelayed {
		t.Fatalf("expected no delay below the threshold, got %+v", status)
	}
	if status.RemainingDelay != 0 {
		t.Fatalf("expected zero remaining delay, got %v", status.RemainingDelay)
	}
}

func TestTrackerBlocksAtThreshold(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 5, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	for i := 0; i < 5; i++ {
		tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	}

	status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
	if !status.IsDelayed {
		t.Fatal("expected the 6th check to be delayed")
	}
	if status.RemainingDelay != time.Second {
		t.Fatalf("expected a 1s delay at the threshold, got %v", status.RemainingDelay)
	}
}

func TestTrackerEscalatesExponentiallyWithCap(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Window: time.Hour}, start)

	expected := []time.Duration{
		0, 0, // below threshold
		time.Second,     // count 3: base * 2^0
		2 * time.Second, // count 4
		4 * time.Second, // count 5
		8 * time.Second, // count 6
		8 * time.Second, // count 7: capped
	}

	for i, want := range expected {
		tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
		status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
		if want == 0 {
			if status.IsDelayed {
				t.Fatalf("attempt %d: expected clean, got delay %v", i+1, status.RemainingDelay)
			}
			continue
		}
		if !status.IsDelayed || status.RemainingDelay != want {
			t.Fatalf("attempt %d: expected delay %v, got %+v", i+1, want, status)
		}
	}
}

func TestTrackerRemainingDelayDecreasesToZero(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, now := testTracker(t, Config{Threshold: 1, BaseDelay: 10 * time.Second, MaxDelay: time.Minute}, start)

	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")

	previous := tracker.CheckDelay("alice@x.com", "203.0.113.4").RemainingDelay
	if previous != 10*time.Second {
		t.Fatalf("expected 10s initial delay, got %v", previous)
	}

	for i := 0; i < 9; i++ {
		*now = now.Add(time.Second)
		status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
		if !status.IsDelayed {
			t.Fatalf("expected delay to persist at t+%ds", i+1)
		}
		if status.RemainingDelay >= previous {
			t.Fatalf("expected remaining delay to strictly decrease, %v -> %v", previous, status.RemainingDelay)
		}
		previous = status.RemainingDelay
	}

	*now = now.Add(time.Second)
	if status := tracker.CheckDelay("alice@x.com", "203.0.113.4"); status.IsDelayed {
		t.Fatalf("expected the block to lift exactly at blockedUntil, got %+v", status)
	}
}

func TestTrackerReportsBindingConstraint(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 2, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	// Drive the address counter well past the email counter by failing
	// different accounts from the same address.
	tracker.IncrementAttempts("bob@x.com", "203.0.113.4")
	tracker.IncrementAttempts("carol@x.com", "203.0.113.4")
	tracker.IncrementAttempts("dave@x.com", "203.0.113.4")
	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")

	status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
	if !status.IsDelayed {
		t.Fatal("expected a delay")
	}
	if status.Key != "ip:203.0.113.4" {
		t.Fatalf("expected the ip key to be the binding constraint, got %q", status.Key)
	}
	// ip count 5 vs email count 2: 1s * 2^3 = 8s beats 1s.
	if status.RemainingDelay != 8*time.Second {
		t.Fatalf("expected the larger remaining delay 8s, got %v", status.RemainingDelay)
	}
}

func TestTrackerIndependentTracks(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 3, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	for i := 0; i < 3; i++ {
		tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	}

	// Same address, different account: blocked through the shared ip key.
	if status := tracker.CheckDelay("bob@x.com", "203.0.113.4"); !status.IsDelayed {
		t.Fatal("expected the shared address track to block other accounts")
	} else if status.Key != "ip:203.0.113.4" {
		t.Fatalf("expected the ip key to block, got %q", status.Key)
	}

	// Same account, different address: blocked through the email key.
	if status := tracker.CheckDelay("alice@x.com", "198.51.100.7"); !status.IsDelayed {
		t.Fatal("expected the email track to follow the account across addresses")
	} else if status.Key != "email:alice@x.com" {
		t.Fatalf("expected the email key to block, got %q", status.Key)
	}

	// Different account from a different address: unaffected.
	if status := tracker.CheckDelay("bob@x.com", "198.51.100.7"); status.IsDelayed {
		t.Fatalf("expected an unrelated pair to be clean, got %+v", status)
	}
}

func TestTrackerEmailKeyIsCaseNormalized(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 2, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	tracker.IncrementAttempts("Alice@X.com", "203.0.113.4")
	tracker.IncrementAttempts("alice@x.com", "198.51.100.7")

	status := tracker.CheckDelay("ALICE@x.COM", "192.0.2.9")
	if !status.IsDelayed {
		t.Fatal("expected case variants to share one email tracking key")
	}
	if status.Key != "email:alice@x.com" {
		t.Fatalf("expected the normalized email key, got %q", status.Key)
	}
}

func TestTrackerReset(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, _ := testTracker(t, Config{Threshold: 2, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	for i := 0; i < 4; i++ {
		tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	}
	if !tracker.CheckDelay("alice@x.com", "203.0.113.4").IsDelayed {
		t.Fatal("expected a delay before reset")
	}

	tracker.ResetAllAttempts("alice@x.com", "203.0.113.4")

	status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
	if status.IsDelayed || status.RemainingDelay != 0 {
		t.Fatalf("expected a clean state after reset, got %+v", status)
	}
}

func TestTrackerWindowExpiryClearsRecord(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, now := testTracker(t, Config{Threshold: 2, BaseDelay: time.Second, MaxDelay: time.Minute, Window: 10 * time.Minute}, start)

	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	*now = now.Add(11 * time.Minute)

	// The record self-expired; the next failure starts a fresh count of 1.
	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	if status := tracker.CheckDelay("alice@x.com", "203.0.113.4"); status.IsDelayed {
		t.Fatalf("expected a fresh window after TTL expiry, got %+v", status)
	}
}

func TestTrackerBlockOutlivesShortWindow(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, now := testTracker(t, Config{Threshold: 1, BaseDelay: time.Minute, MaxDelay: time.Hour, Window: 10 * time.Second}, start)

	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")

	// Window is shorter than the imposed delay; the block must still hold.
	*now = now.Add(30 * time.Second)
	if status := tracker.CheckDelay("alice@x.com", "203.0.113.4"); !status.IsDelayed {
		t.Fatal("expected the block to outlive the attempt window")
	}
}

func TestTrackerConcurrentIncrementsLoseNothing(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	const workers = 50
	tracker, _ := testTracker(t, Config{Threshold: workers, BaseDelay: time.Second, MaxDelay: time.Minute}, start)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
		}()
	}
	wg.Wait()

	rec, ok := tracker.store.Get("email:alice@x.com")
	if !ok {
		t.Fatal("expected an attempt record")
	}
	if rec.Count != workers {
		t.Fatalf("lost updates: expected count %d, got %d", workers, rec.Count)
	}

	// Exactly at the threshold: the block must have been set.
	if status := tracker.CheckDelay("alice@x.com", "203.0.113.4"); !status.IsDelayed {
		t.Fatal("expected the threshold crossing to block at the correct count")
	}
}

func TestTrackerLoginScenario(t *testing.T) {
	// Spec scenario: threshold 5, base 1000ms, cap 60000ms.
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	cfg := Config{Threshold: 5, BaseDelay: time.Second, MaxDelay: time.Minute, Window: 15 * time.Minute}

	t.Run("five failures block the sixth check", func(t *testing.T) {
		tracker, _ := testTracker(t, cfg, start)
		for i := 0; i < 5; i++ {
			tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
		}

		status := tracker.CheckDelay("alice@x.com", "203.0.113.4")
		if !status.IsDelayed {
			t.Fatal("expected the 6th check to be delayed")
		}
		if status.RemainingDelay.Milliseconds() != 1000 {
			t.Fatalf("expected ~1000ms remaining, got %dms", status.RemainingDelay.Milliseconds())
		}
	})

	t.Run("success before the fifth failure resets", func(t *testing.T) {
		tracker, _ := testTracker(t, cfg, start)
		for i := 0; i < 4; i++ {
			tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
		}

		tracker.ResetAllAttempts("alice@x.com", "203.0.113.4")

		if status := tracker.CheckDelay("alice@x.com", "203.0.113.4"); status.IsDelayed {
			t.Fatalf("expected a clean state after a successful login, got %+v", status)
		}
	})
}

func TestTrackerBlockedUntilNeverMovesBackwards(t *testing.T) {
	start := time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)
	tracker, now := testTracker(t, Config{Threshold: 1, BaseDelay: 10 * time.Second, MaxDelay: 10 * time.Second, Window: time.Hour}, start)

	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	first := tracker.CheckDelay("alice@x.com", "203.0.113.4")

	// A later failure with the same capped delay extends, never shortens.
	*now = now.Add(2 * time.Second)
	tracker.IncrementAttempts("alice@x.com", "203.0.113.4")
	second := tracker.CheckDelay("alice@x.com", "203.0.113.4")

	if second.RemainingDelay < first.RemainingDelay-2*time.Second {
		t.Fatalf("blockedUntil moved backwards: %v then %v", first.RemainingDelay, second.RemainingDelay)
	}
}
