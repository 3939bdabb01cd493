package preview

import (
	"sync"
	"time"
)

type cacheEntry struct {
	result  Result
	expires time.Time
	stored  time.Time
}

// resultCache keeps recent results for ttl, evicting the oldest entry when
// more than maxSize are held.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
}

func newResultCache(ttl time.Duration, maxSize int) *resultCache {
	return &resultCache{entries: make(map[string]cacheEntry), ttl: ttl, maxSize: maxSize}
}

func (c *resultCache) get(key string, now time.Time) (Result, bool) {
	if c == nil || c.ttl <= 0 {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if !now.Before(entry.expires) {
		delete(c.entries, key)
		return Result{}, false
	}
	return entry.result, true
}

func (c *resultCache) put(key string, result Result, now time.Time) {
	if c == nil || c.ttl <= 0 || c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expires: now.Add(c.ttl), stored: now}
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	for len(c.entries) > c.maxSize {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.stored.Before(oldestAt) {
				oldest, oldestAt = k, e.stored
			}
		}
		delete(c.entries, oldest)
	}
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
