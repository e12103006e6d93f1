// Package toolcache caches read-only tool results for the duration of a
// conversation window. Entries are bucketed per event so any write to an
// event's guest data can drop every cached read for that event at once.
package toolcache

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached read stays valid when no write intervenes.
const DefaultTTL = 24 * time.Hour

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a per-event, TTL-bounded result cache for read-only tools.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	buckets map[string]map[string]entry

	// now is split out so tests can control expiry.
	now func() time.Time
}

// New creates a cache with the given TTL. A non-positive TTL uses DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		buckets: make(map[string]map[string]entry),
		now:     time.Now,
	}
}

// Key builds the cache key for a tool invocation against a guest.
func Key(toolName, guestID string) string {
	return toolName + ":" + guestID
}

// Get returns the cached value for (eventID, key), if present and unexpired.
func (c *Cache) Get(eventID, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.buckets[eventID]
	if !ok {
		return "", false
	}
	e, ok := bucket[key]
	if !ok {
		return "", false
	}
	if c.now().After(e.expiresAt) {
		delete(bucket, key)
		return "", false
	}
	return e.value, true
}

// Put stores a value for (eventID, key) with the cache's TTL.
func (c *Cache) Put(eventID, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.buckets[eventID]
	if !ok {
		bucket = make(map[string]entry)
		c.buckets[eventID] = bucket
	}
	bucket[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// InvalidateEvent drops every cached entry for an event. Called after any
// mutation touching the event's guest data; staleness within one event is
// worse than re-running its reads.
func (c *Cache) InvalidateEvent(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.buckets, eventID)
}

// Len reports the number of live entries for an event. Expired entries are
// counted until read.
func (c *Cache) Len(eventID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets[eventID])
}
