package services

import (
	"log"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"sumup/internal/models"
)

// SummaryCache keeps finished summaries in memory, keyed by handle, type
// and style. Entries are stored by value and never modified in place.
type SummaryCache struct {
	cache *cache.Cache
}

// NewSummaryCache creates a cache. A ttl of zero keeps entries until they
// are invalidated or cleared.
func NewSummaryCache(ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		return &SummaryCache{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &SummaryCache{cache: cache.New(ttl, ttl/2)}
}

// Get returns the entry stored under key
func (s *SummaryCache) Get(key models.CacheKey) (models.CacheEntry, bool) {
	value, found := s.cache.Get(key.String())
	if !found {
		return models.CacheEntry{}, false
	}

	entry, ok := value.(models.CacheEntry)
	if !ok {
		return models.CacheEntry{}, false
	}
	return entry, true
}

// Put stores entry under key, replacing any previous entry
func (s *SummaryCache) Put(key models.CacheKey, entry models.CacheEntry) {
	s.cache.Set(key.String(), entry, cache.DefaultExpiration)
	log.Printf("📦 [CACHE] Stored summary for %s (type: %s, style: %q)", key.Handle, key.Type, key.Style)
}

// Invalidate removes the entry under key. Absent keys are ignored.
func (s *SummaryCache) Invalidate(key models.CacheKey) {
	s.cache.Delete(key.String())
}

// InvalidateHandle removes every entry of handle and returns how many
func (s *SummaryCache) InvalidateHandle(handle string) int {
	prefix := models.HandlePrefix(handle)
	removed := 0
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("🗑️  [CACHE] Invalidated %d summaries for %s", removed, handle)
	}
	return removed
}

// ClearAll removes every entry and returns how many there were
func (s *SummaryCache) ClearAll() int {
	count := s.cache.ItemCount()
	s.cache.Flush()
	return count
}

// Count returns the number of cached entries
func (s *SummaryCache) Count() int {
	return s.cache.ItemCount()
}
