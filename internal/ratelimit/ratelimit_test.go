package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int, size time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := New(limit, size)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		max      int
		calls    int
		wantPass int
	}{
		{name: "under limit", max: 10, calls: 5, wantPass: 5},
		{name: "exactly at limit", max: 3, calls: 3, wantPass: 3},
		{name: "over limit", max: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLimiter(tt.max, time.Minute)

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if l.Allow("client:games").Allowed {
					passed++
				}
			}

			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestLimiter_WindowResets(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)
	start := *now

	require.True(t, l.Allow("k").Allowed)
	second := l.Allow("k")
	require.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	denied := l.Allow("k")
	assert.False(t, denied.Allowed)
	assert.Equal(t, start.Add(time.Minute), denied.ResetAt)
	assert.Equal(t, 30*time.Second, denied.RetryAfter(start.Add(30*time.Second)))

	reset, ok := l.ResetTime("k")
	require.True(t, ok)
	assert.Equal(t, start.Add(time.Minute), reset)

	*now = start.Add(time.Minute + time.Millisecond)
	assert.Equal(t, 2, l.Remaining("k"))
	assert.True(t, l.Allow("k").Allowed)
	assert.Equal(t, 1, l.Remaining("k"))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)

	assert.True(t, l.Allow(Key("1.2.3.4", "games")).Allowed)
	assert.False(t, l.Allow(Key("1.2.3.4", "games")).Allowed)
	assert.True(t, l.Allow(Key("1.2.3.4", "family")).Allowed)
	assert.True(t, l.Allow(Key("5.6.7.8", "games")).Allowed)
}

func TestLimiter_Sweep(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)
	l.Allow("a")
	*now = now.Add(30 * time.Second)
	l.Allow("b")
	*now = now.Add(45 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	_, ok := l.ResetTime("b")
	assert.True(t, ok)
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	h := Middleware(l, "games", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/steam/games", nil)
	req.RemoteAddr = "10.0.0.1"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddleware_SameHostDifferentPorts(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	h := Middleware(l, "games", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for _, addr := range []string{"203.0.113.7:50001", "203.0.113.7:50002", "203.0.113.7:50003"} {
		req := httptest.NewRequest(http.MethodGet, "/api/steam/games", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{addr: "203.0.113.7:50001", want: "203.0.113.7"},
		{addr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{addr: "10.0.0.1", want: "10.0.0.1"},
		{addr: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.addr
			assert.Equal(t, tt.want, RemoteAddr(req))
		})
	}
}
