// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a lightweight, in-memory token-bucket limiter keyed
// by client IP. It is edge-level abuse protection only; the product rule
// "N alerts per identifier per window" is enforced separately by the
// per-identifier window in internal/ratelimit, inside the alert service.
//
// The limiter is process-local; a horizontally scaled deployment would need
// a shared limiter to enforce global ceilings.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// bucket holds one IP's limiter and the last time it was used, so idle
// entries can be evicted.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token-bucket limiter with opportunistic garbage
// collection of idle buckets. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	ttl     time.Duration
	lookupN uint64
}

// NewRateLimiter constructs a limiter replenishing rps tokens per second
// with the given burst size (coerced to at least 1).
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// get returns the limiter for key, creating it if absent. Every ~5000
// lookups, buckets idle past the TTL are evicted; the sweep runs before the
// requested key is touched so a stale entry for that key is also replaced.
func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookupN++
	if rl.lookupN >= 5000 {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lookupN = 0
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns the Gin middleware enforcing the per-IP bucket. Rejected
// requests get a 429 with the relay's plain error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.get(c.ClientIP()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "Too many requests",
		})
	}
}
