// Package ratelimit provides a keyed fixed-window request counter.
//
// Each key (client identifier plus endpoint class) gets maxRequests per
// window. The window starts with the first request and resets once it has
// elapsed, so callers can tell a rejected client exactly when to retry.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Decision is the result of Allow
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the time left until the window resets
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// New creates a limiter allowing maxRequests per window for every key.
func New(maxRequests int, size time.Duration) *Limiter {
	return &Limiter{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		window:      size,
		now:         time.Now,
	}
}

// Key joins a client identifier and an endpoint class
func Key(client, class string) string {
	return client + ":" + class
}

// Allow counts a request for key and reports whether it may proceed.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.maxRequests - 1, ResetAt: w.resetAt}
	}

	if w.count >= l.maxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Decision{Allowed: true, Remaining: l.maxRequests - w.count, ResetAt: w.resetAt}
}

// Remaining returns how many requests key may still make in its window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.resetAt) {
		return l.maxRequests
	}
	return max(0, l.maxRequests-w.count)
}

// ResetTime returns when key's window resets, or false without an open window.
func (l *Limiter) ResetTime(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.resetAt) {
		return time.Time{}, false
	}
	return w.resetAt, true
}

// Sweep forgets closed windows and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// KeyFunc extracts the client identifier from a request
type KeyFunc func(r *http.Request) string

// RemoteAddr identifies clients by the host part of r.RemoteAddr, so every
// connection from one IP shares a window. Put chi's RealIP middleware in
// front when running behind a proxy.
func RemoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit for the endpoint class with
// 429 and a Retry-After header.
func Middleware(l *Limiter, class string, keyFn KeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = RemoteAddr
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(Key(keyFn(r), class))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.maxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := d.RetryAfter(l.now())
				seconds := int(retry.Round(time.Second) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(max(1, seconds)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED","retry_after":%d}`, max(1, seconds))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
