package authapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"chatpad/cmd/internal/respond"
)

// loginThrottle counts failed logins per client address in a sliding window.
// State is process-local.
type loginThrottle struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	failures map[string][]time.Time
}

func newLoginThrottle(max int, window time.Duration) *loginThrottle {
	return &loginThrottle{max: max, window: window, failures: make(map[string][]time.Time)}
}

// check reports whether key is blocked and for how long.
func (t *loginThrottle) check(key string, now time.Time) (bool, time.Duration) {
	if t == nil || t.max <= 0 || key == "" {
		return false, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := prune(t.failures[key], now, t.window)
	if len(kept) == 0 {
		delete(t.failures, key)
	} else {
		t.failures[key] = kept
	}
	return evaluateWindowThrottle(now, kept, t.max, t.window)
}

func (t *loginThrottle) fail(key string, now time.Time) {
	if t == nil || t.max <= 0 || key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[key] = append(prune(t.failures[key], now, t.window), now)
}

func (t *loginThrottle) reset(key string) {
	if t == nil || key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, key)
}

func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := now.Add(-window)
	out := ts[:0]
	for _, x := range ts {
		if x.After(cut) {
			out = append(out, x)
		}
	}
	return out
}

// evaluateWindowThrottle blocks once max failures fall inside window; the
// block lasts until the oldest counted failure leaves the window.
func evaluateWindowThrottle(now time.Time, failures []time.Time, max int, window time.Duration) (bool, time.Duration) {
	if max <= 0 {
		return false, 0
	}
	cut := now.Add(-window)
	var inWindow []time.Time
	for _, f := range failures {
		if f.After(cut) {
			inWindow = append(inWindow, f)
		}
	}
	if len(inWindow) < max {
		return false, 0
	}

	oldest := inWindow[0]
	for _, f := range inWindow[1:] {
		if f.Before(oldest) {
			oldest = f
		}
	}
	return true, oldest.Add(window).Sub(now)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	respond.Fail(w, http.StatusTooManyRequests, "Too many attempts")
}
