package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

func TestResultCache_HitAndMiss(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	result := &entities.SearchResult{TotalAfterFilter: 3}

	key := CacheKey("red sneakers", entities.ParsedConstraints{Colors: []string{"red"}}, "", 0)
	assert.Nil(t, cache.Get(key))

	cache.Set(key, result)
	assert.Same(t, result, cache.Get(key))

	other := CacheKey("blue sneakers", entities.ParsedConstraints{Colors: []string{"blue"}}, "", 0)
	assert.Nil(t, cache.Get(other))
}

func TestResultCache_ExpiryPurges(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	key := CacheKey("sneakers", entities.ParsedConstraints{}, "", 0)
	cache.Set(key, &entities.SearchResult{})
	require.NotNil(t, cache.Get(key))

	current = current.Add(5*time.Minute + time.Second)
	assert.Nil(t, cache.Get(key))
	assert.Equal(t, 0, cache.Len())
}

func TestResultCache_SetPurgesExpiredEntries(t *testing.T) {
	cache := NewResultCache(time.Minute)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	cache.Set("a", &entities.SearchResult{})
	current = current.Add(2 * time.Minute)
	cache.Set("b", &entities.SearchResult{})

	assert.Equal(t, 1, cache.Len())
}

func TestResultCache_Invalidate(t *testing.T) {
	cache := NewResultCache(5 * time.Minute)
	cache.Set("a", &entities.SearchResult{})
	cache.Set("b", &entities.SearchResult{})

	cache.Invalidate()

	assert.Equal(t, 0, cache.Len())
	assert.Nil(t, cache.Get("a"))
}

func TestCacheKey_Deterministic(t *testing.T) {
	c := entities.ParsedConstraints{Colors: []string{"red"}}

	assert.Equal(t, CacheKey("q", c, "", 0), CacheKey("q", c, "", 0))
	assert.NotEqual(t, CacheKey("q", c, "", 0), CacheKey("q", c, "", 10))
	assert.NotEqual(t, CacheKey("q", c, "", 0), CacheKey("q", c, "abc", 0))
	assert.NotEqual(t, CacheKey("q", c, "", 0), CacheKey("q", entities.ParsedConstraints{}, "", 0))
}
