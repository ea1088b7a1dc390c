package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/goodaymmm/shopping-for-algolia-personalized-sub000/internal/domain/entities"
)

// ResultCache is an in-process TTL cache for assembled search results. It is
// intentionally not the shared cache backend: entries depend on the current
// profile, so any new interaction event invalidates the whole cache, and the
// working set is one user's recent queries.
type ResultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]resultCacheEntry
	now     func() time.Time
}

type resultCacheEntry struct {
	result    *entities.SearchResult
	expiresAt time.Time
}

// NewResultCache creates a result cache with the given entry TTL.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		ttl:     ttl,
		entries: make(map[string]resultCacheEntry),
		now:     time.Now,
	}
}

// CacheKey builds the deterministic key for one search request: the
// normalized query, its parsed constraints, the image content hash (empty
// when no image) and the discovery percentage.
func CacheKey(query string, constraints entities.ParsedConstraints, imageHash string, discoveryPct int) string {
	payload, _ := json.Marshal(struct {
		Query        string                     `json:"q"`
		Constraints  entities.ParsedConstraints `json:"c"`
		ImageHash    string                     `json:"i,omitempty"`
		DiscoveryPct int                        `json:"d,omitempty"`
	}{query, constraints, imageHash, discoveryPct})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for key, or nil if absent or expired.
func (c *ResultCache) Get(key string) *entities.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return entry.result
}

// Set stores a result under key, replacing any previous entry.
func (c *ResultCache) Set(key string, result *entities.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic purge keeps the map from accumulating dead entries
	// between invalidations.
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = resultCacheEntry{result: result, expiresAt: now.Add(c.ttl)}
}

// Invalidate drops every entry. Called whenever the profile changes, since
// cached rankings were computed against the old profile.
func (c *ResultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]resultCacheEntry)
}

// Len reports the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
