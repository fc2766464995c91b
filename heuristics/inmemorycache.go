package heuristics

import (
	"sync"
	"time"
)

// InMemoryCache is a mutex guarded Cache
type InMemoryCache struct {
	list     []*Heuristic
	cachedAt time.Time
	config   CacheConfig
	mu       sync.RWMutex
	isValid  bool
}

// NewInMemoryCache creates a new in-memory heuristic cache
func NewInMemoryCache(config CacheConfig) *InMemoryCache {
	return &InMemoryCache{config: config}
}

// Get returns a copy of the cached list, or nil if invalid or expired
func (c *InMemoryCache) Get() []*Heuristic {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}

	out := make([]*Heuristic, len(c.list))
	copy(out, c.list)
	return out
}

// Set stores a copy of the list
func (c *InMemoryCache) Set(list []*Heuristic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list = make([]*Heuristic, len(list))
	copy(c.list, list)
	c.cachedAt = time.Now()
	c.isValid = true
}

// Invalidate clears the cache
func (c *InMemoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.list = nil
}

// fresh must be called with mu held
func (c *InMemoryCache) fresh() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 && time.Since(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
