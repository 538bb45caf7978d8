// Package ratelimit provides an in-process, per-user token-bucket limiter.
// The limiter is an injected value, not a package-level singleton, so tests
// can construct and reset one deterministically.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// Limiter rate-limits actions per key (user id).
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	burst    int
	interval time.Duration
	now      func() time.Time
}

// NewLimiter builds a limiter allowing burst actions per key, refilling one
// token every interval.
func NewLimiter(burst int, interval time.Duration) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Limiter{
		buckets:  make(map[string]*bucket),
		burst:    burst,
		interval: interval,
		now:      time.Now,
	}
}

// Allow consumes one token for key and reports whether the action may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	refill := int(now.Sub(b.lastRefill) / l.interval)
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Reset drops all buckets.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[string]*bucket)
}
