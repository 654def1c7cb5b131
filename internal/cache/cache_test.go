package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(30*time.Minute, 0)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("games:1", []int{1, 2}, 0)

	v, ok := c.Get("games:1")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_ExpiresLazily(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("user:1", "alice", 5*time.Minute)
	clock.Advance(5 * time.Minute)
	assert.True(t, c.Has("user:1"), "entry is live up to its expiry instant")

	clock.Advance(time.Second)
	assert.False(t, c.Has("user:1"))
	assert.Equal(t, 0, c.Stats().Size, "expired entry evicted on read")
}

func TestCache_DefaultTTL(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("k", 1, 0)
	clock.Advance(29 * time.Minute)
	assert.True(t, c.Has("k"))
	clock.Advance(2 * time.Minute)
	assert.False(t, c.Has("k"))
}

func TestCache_Cleanup(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)
	clock.Advance(10 * time.Minute)

	assert.Equal(t, 1, c.Cleanup())
	stats := c.Stats()
	require.Equal(t, 1, stats.Size)
	assert.Equal(t, "long", stats.Entries[0].Key)
	assert.Equal(t, 10*time.Minute, stats.Entries[0].Age)
	assert.Equal(t, 50*time.Minute, stats.Entries[0].ExpiresIn)
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	c.Delete("a")

	assert.False(t, c.Has("a"))
	assert.Equal(t, 2, c.Clear())
	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_SweeperRemovesExpired(t *testing.T) {
	c := New(time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.Set("k", 1, time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().Size == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, time.Minute)
	c.Close()
	c.Close()
}
