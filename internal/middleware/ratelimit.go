package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type windowEntry struct {
	requests []time.Time
	mu       sync.Mutex
	// dead marks an entry swept from the store; holders must reload.
	dead bool
}

// RateLimiter allows at most max requests per client in any sliding window.
// Every gateway request fans out to the health database, so this also caps
// upstream load per client.
type RateLimiter struct {
	max    int
	window time.Duration
	store  sync.Map
	now    func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window, now: time.Now}
}

// allow records a request for key and reports whether it fits the window.
// When it does not, it also returns how long until the oldest request ages
// out.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	now := rl.now()
	cutoff := now.Add(-rl.window)
	rl.sweep(now)

	entry := rl.entry(key)
	defer entry.mu.Unlock()

	filtered := entry.requests[:0]
	for _, t := range entry.requests {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	entry.requests = filtered

	if len(entry.requests) >= rl.max {
		return false, entry.requests[0].Sub(cutoff)
	}

	entry.requests = append(entry.requests, now)
	return true, 0
}

// entry returns the live, locked entry for key.
func (rl *RateLimiter) entry(key string) *windowEntry {
	for {
		v, _ := rl.store.LoadOrStore(key, &windowEntry{})
		e := v.(*windowEntry)
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// sweep drops clients whose requests have all aged out. It runs at most once
// per window.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.sweepMu.Lock()
	if now.Sub(rl.lastSweep) < rl.window {
		rl.sweepMu.Unlock()
		return
	}
	rl.lastSweep = now
	rl.sweepMu.Unlock()

	cutoff := now.Add(-rl.window)
	rl.store.Range(func(k, v any) bool {
		e := v.(*windowEntry)
		e.mu.Lock()
		if n := len(e.requests); n == 0 || !e.requests[n-1].After(cutoff) {
			e.dead = true
			rl.store.CompareAndDelete(k, e)
		}
		e.mu.Unlock()
		return true
	})
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(clientIP(r))
		if !ok {
			secs := int(wait.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop and drops the port from
// RemoteAddr so one client maps to one bucket.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
