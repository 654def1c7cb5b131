// Package cache provides an in-process key/value cache with per-entry TTLs.
//
// Expired entries are dropped lazily when read and periodically by a
// background sweeper. Nothing survives a restart.
package cache

import (
	"sort"
	"sync"
	"time"
)

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// EntryStats describes one cached entry
type EntryStats struct {
	Key       string        `json:"key"`
	Age       time.Duration `json:"age"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// Stats is a point-in-time view of the cache
type Stats struct {
	Size    int          `json:"size"`
	Entries []EntryStats `json:"entries"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
	now        func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a cache. A positive sweepInterval starts a goroutine that
// removes expired entries until Close is called.
func New(defaultTTL, sweepInterval time.Duration) *Cache {
	c := &Cache{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}
	return c
}

// Set stores value under key for ttl. A non-positive ttl uses the default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
}

// Get returns the value for key. Missing and expired keys report false;
// expired keys are evicted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Has reports whether key holds a live value.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry and returns how many were dropped.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]entry)
	return n
}

// Cleanup removes expired entries and returns how many were dropped.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats lists entries sorted by key.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{Size: len(c.entries), Entries: make([]EntryStats, 0, len(c.entries))}
	for k, e := range c.entries {
		stats.Entries = append(stats.Entries, EntryStats{
			Key:       k,
			Age:       now.Sub(e.createdAt),
			ExpiresIn: e.expiresAt.Sub(now),
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool { return stats.Entries[i].Key < stats.Entries[j].Key })
	return stats
}

// Close stops the sweeper. It is safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
