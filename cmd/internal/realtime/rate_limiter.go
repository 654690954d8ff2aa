package realtime

import (
	"sync"
	"time"
)

// RateLimiter admits at most limit events per sliding window. One per
// connection. Timestamps live in a fixed ring so Allow does not allocate.
type RateLimiter struct {
	mu     sync.Mutex
	stamps []time.Time
	next   int
	n      int
	window time.Duration
}

// NewRateLimiter falls back to the package defaults for non-positive inputs.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = rateLimitEvents
	}
	if window <= 0 {
		window = rateLimitWindow
	}
	return &RateLimiter{stamps: make([]time.Time, limit), window: window}
}

// Allow records an event at now, or reports how long until one would be
// admitted. Rejected events are not recorded.
func (r *RateLimiter) Allow(now time.Time) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.n == len(r.stamps) {
		oldest := r.stamps[r.next]
		if wait := oldest.Add(r.window).Sub(now); wait > 0 {
			return false, wait
		}
	} else {
		r.n++
	}
	r.stamps[r.next] = now
	r.next = (r.next + 1) % len(r.stamps)
	return true, 0
}
