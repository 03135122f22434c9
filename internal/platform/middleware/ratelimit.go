package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// slidingWindow tracks request times for one client. The sliding window
// avoids the burst at a fixed-window boundary.
type slidingWindow struct {
	times  []time.Time
	window time.Duration
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.times); i++ {
		if sw.times[i].After(cutoff) {
			break
		}
	}
	sw.times = sw.times[i:]
}

// RateLimiter limits requests per client IP over a sliding window. Import
// and sync are expensive whole-dataset operations, so the admin surface
// carries a much lower limit than the read surface would need.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*slidingWindow
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*slidingWindow),
	}
}

// allow records the request when under the limit and reports the seconds
// until the window frees up otherwise.
func (rl *RateLimiter) allow(key string, now time.Time) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sw := rl.buckets[key]
	if sw == nil {
		sw = &slidingWindow{window: rl.window}
		rl.buckets[key] = sw
	}
	sw.cleanup(now)

	if len(sw.times) < rl.limit {
		sw.times = append(sw.times, now)
		return true, 0
	}
	retryAfter := int(sw.times[0].Add(rl.window).Sub(now).Seconds()) + 1
	return false, retryAfter
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := rl.allow(clientIP(r), time.Now())
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
