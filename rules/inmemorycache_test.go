package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRulesCacheMissBeforeSet(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	assert.Nil(t, cache.Get())
	assert.False(t, cache.IsValid())
}

func TestInMemoryRulesCacheSetReturnsCopy(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	rules := []*Rule{{ID: "a"}, {ID: "b"}}
	cache.Set(rules)
	rules[0] = &Rule{ID: "mutated"}

	got := cache.Get()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)

	got[1] = &Rule{ID: "mutated"}
	assert.Equal(t, "b", cache.Get()[1].ID)
}

func TestInMemoryRulesCacheEmptySetIsHit(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	cache.Set(nil)
	assert.NotNil(t, cache.Get(), "an empty rule list should still be a cache hit")
}

func TestInMemoryRulesCacheInvalidate(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	cache.Set([]*Rule{{ID: "a"}})
	cache.Invalidate()

	assert.Nil(t, cache.Get())
	assert.False(t, cache.IsValid())
}

func TestInMemoryRulesCacheTTL(t *testing.T) {
	cache := NewInMemoryRulesCache(CacheConfig{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set([]*Rule{{ID: "a"}})
	require.True(t, cache.IsValid())

	now = now.Add(2 * time.Minute)
	assert.False(t, cache.IsValid())
	assert.Nil(t, cache.Get())
}
