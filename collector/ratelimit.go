package collector

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// rateLimiter caps requests per client IP over a sliding window.
type rateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	seen   map[string][]time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		max:    max,
		window: window,
		seen:   make(map[string][]time.Time),
	}
}

// allow records one request from ip and reports whether it is within
// the limit.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	recent := rl.seen[ip][:0]
	for _, t := range rl.seen[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.max {
		rl.seen[ip] = recent
		return false
	}
	rl.seen[ip] = append(recent, now)
	return true
}

// clientIP extracts the caller address, honoring a proxy-set
// X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
