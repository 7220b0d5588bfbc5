package verify

import (
	"sync"
	"time"
)

// cacheEntry records a computed digest together with the fingerprint of the
// file at the time it was hashed. An entry is stale once size or mtime moves.
type cacheEntry struct {
	hash     string
	size     int64
	mtime    time.Time
	cachedAt time.Time
}

type hashCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newHashCache() *hashCache {
	return &hashCache{entries: make(map[string]cacheEntry)}
}

func cacheKey(path string, method Method) string {
	return path + "\x00" + method.String()
}

func (c *hashCache) lookup(key string, size int64, mtime time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.size != size || !e.mtime.Equal(mtime) {
		return "", false
	}
	return e.hash, true
}

func (c *hashCache) store(key, hash string, size int64, mtime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{hash: hash, size: size, mtime: mtime, cachedAt: time.Now()}
}

func (c *hashCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
