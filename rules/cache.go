package rules

import "time"

// RulesCache caches the ordered list of active rules so evaluation does not
// hit the store on every call.
type RulesCache interface {
	// Get retrieves cached rules, returns nil on a miss or after expiry
	Get() []*Rule

	// Set stores rules in cache
	Set(rules []*Rule)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns the defaults used by NewEngine.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0, // only invalidate on mutations
	}
}
