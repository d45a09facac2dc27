package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter allows limit requests per client address in each fixed window.
// Expired windows are evicted while handling requests; there is no
// background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	size      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, size time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		size:    size,
		now:     time.Now,
	}
}

// allow counts one request for key and reports whether it fits the current
// window, along with the time left until the window resets.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.size {
		for k, w := range rl.windows {
			if now.Sub(w.start) >= rl.size {
				delete(rl.windows, k)
			}
		}
		rl.lastSweep = now
	}

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.size {
		w = &window{start: now}
		rl.windows[key] = w
	}
	w.count++
	return w.count <= rl.limit, w.start.Add(rl.size).Sub(now)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, reset := rl.allow(ClientIP(r))
		if !ok {
			secs := int(reset.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
