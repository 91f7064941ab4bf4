package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fixedClock returns a controllable now() and a function to advance it.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := start
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}
}

func TestWindow_QuotaExhaustion(t *testing.T) {
	w := NewWindow(100, 24*time.Hour)
	clock, _ := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w.now = clock

	for i := 0; i < 100; i++ {
		if !w.Allow("node.eth") {
			t.Fatalf("request %d rejected inside quota", i+1)
		}
	}
	if w.Allow("node.eth") {
		t.Fatalf("101st request accepted, want rejected")
	}
	if got := w.Remaining("node.eth"); got != 0 {
		t.Fatalf("Remaining = %d, want 0", got)
	}
}

func TestWindow_ResetAfterElapsed(t *testing.T) {
	w := NewWindow(2, time.Hour)
	clock, advance := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w.now = clock

	if !w.Allow("k") || !w.Allow("k") {
		t.Fatalf("initial quota rejected")
	}
	if w.Allow("k") {
		t.Fatalf("over-quota request accepted")
	}

	// First request after the window has elapsed starts a fresh window.
	advance(time.Hour)
	if !w.Allow("k") {
		t.Fatalf("first request of new window rejected")
	}
	if got := w.Remaining("k"); got != 1 {
		t.Fatalf("Remaining = %d, want 1", got)
	}
}

func TestWindow_KeysAreIndependent(t *testing.T) {
	w := NewWindow(1, time.Hour)
	if !w.Allow("a") {
		t.Fatalf("first key rejected")
	}
	if !w.Allow("b") {
		t.Fatalf("second key affected by first key's quota")
	}
	if w.Allow("a") {
		t.Fatalf("exhausted key accepted")
	}
}

func TestWindow_RawIdentifierIsTheKey(t *testing.T) {
	// Case variants of the same address are distinct quota keys: the
	// limiter sees the raw submission, not the normalized address.
	w := NewWindow(1, time.Hour)
	if !w.Allow("0xABC") || !w.Allow("0xabc") {
		t.Fatalf("case variants should have independent quotas")
	}
}

func TestWindow_ConcurrentBoundary(t *testing.T) {
	// check-then-increment must be atomic: with max=50, exactly 50 of 100
	// concurrent requests may pass.
	w := NewWindow(50, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w.Allow("shared") {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 50 {
		t.Fatalf("accepted = %d, want exactly 50", accepted)
	}
}

func TestWindow_GCExpiredEntries(t *testing.T) {
	w := NewWindow(1, time.Minute)
	clock, advance := fixedClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w.now = clock

	w.Allow("stale")
	advance(2 * time.Minute)

	// Force the sweep on the next lookup.
	w.mu.Lock()
	w.cleanupN = 4999
	w.mu.Unlock()
	w.Allow("fresh")

	w.mu.Lock()
	_, staleExists := w.entries["stale"]
	_, freshExists := w.entries["fresh"]
	w.mu.Unlock()
	if staleExists {
		t.Fatalf("expired entry survived GC")
	}
	if !freshExists {
		t.Fatalf("fresh entry missing after GC")
	}
}
