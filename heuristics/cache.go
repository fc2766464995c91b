package heuristics

import "time"

// Cache holds the active heuristic list so scoring does not hit the store on
// every analysis
type Cache interface {
	// Get retrieves cached heuristics, returns nil if cache miss or expired
	Get() []*Heuristic

	// Set stores heuristics in cache
	Set(list []*Heuristic)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means entries live until invalidated by a mutation.
	TTL time.Duration
}

// DefaultCacheConfig only invalidates on mutations
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
