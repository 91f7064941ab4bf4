// Package ratelimit implements the per-identifier alert quota: a counted
// fixed window keyed by the raw identifier string as submitted by the
// client (not the normalized address, so "vitalik.eth" and the address it
// resolves to have independent quotas, matching the ingestion contract).
//
// This is distinct from the HTTP edge limiter (a token bucket per client
// IP in internal/http/middleware): the window here enforces the product
// rule "at most N alerts per identifier per window", which a continuously
// refilling bucket cannot express.
//
// Notes:
//   - The limiter is process-local. For horizontally scaled deployments,
//     prefer a shared store; the type is injected everywhere it is used, so
//     swapping the implementation does not touch call sites.
//   - check-then-increment is atomic per key (single mutex), so two
//     near-simultaneous requests cannot both pass the boundary check.
package ratelimit

import (
	"sync"
	"time"
)

// window tracks accepted requests for one identifier within the current
// fixed window, anchored at the first accepted request.
type window struct {
	count       int
	windowStart time.Time
}

// Window is a counted fixed-window limiter with per-key state and
// opportunistic garbage collection of expired entries.
//
// This type is safe for concurrent use.
type Window struct {
	max      int
	duration time.Duration

	mu      sync.Mutex
	entries map[string]*window

	now      func() time.Time // injectable clock for tests
	cleanupN uint64
}

// NewWindow constructs a limiter allowing max accepted requests per key per
// duration. Values below 1 request / 1ns are coerced to sane minimums.
func NewWindow(max int, duration time.Duration) *Window {
	if max < 1 {
		max = 1
	}
	if duration <= 0 {
		duration = time.Hour
	}
	return &Window{
		max:      max,
		duration: duration,
		entries:  make(map[string]*window),
		now:      time.Now,
	}
}

// Allow reports whether a request for key fits in the current window, and
// counts it if so. The first request after a window has elapsed starts a
// fresh window anchored at that request.
func (w *Window) Allow(key string) bool {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	// Opportunistic cleanup of expired windows after a threshold of lookups,
	// so one-shot identifiers do not accumulate forever.
	w.cleanupN++
	if w.cleanupN >= 5000 {
		for k, e := range w.entries {
			if now.Sub(e.windowStart) >= w.duration {
				delete(w.entries, k)
			}
		}
		w.cleanupN = 0
	}

	e, ok := w.entries[key]
	if !ok || now.Sub(e.windowStart) >= w.duration {
		w.entries[key] = &window{count: 1, windowStart: now}
		return true
	}
	if e.count >= w.max {
		return false
	}
	e.count++
	return true
}

// Remaining returns the unused quota for key in its current window. A key
// with no live window has the full quota.
func (w *Window) Remaining(key string) int {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[key]
	if !ok || now.Sub(e.windowStart) >= w.duration {
		return w.max
	}
	if e.count >= w.max {
		return 0
	}
	return w.max - e.count
}
