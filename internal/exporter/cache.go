// Package exporter provides caching functionality for Polaris metrics.
package exporter

import (
	"sync"
	"time"

	"github.com/fjacquet/rubrik_polaris/internal/models"
	"github.com/patrickmn/go-cache"
)

const (
	slaCacheKey     = "sla_domains"
	defaultCacheTTL = 5 * time.Minute
)

// SLACache provides TTL-based caching for the SLA domain listing.
// It wraps patrickmn/go-cache so that the listing is fetched once per
// scraping interval instead of on every scrape.
//
// Thread-safety: All methods are safe for concurrent use.
type SLACache struct {
	cache              *cache.Cache
	ttl                time.Duration
	lastCollectionMu   sync.RWMutex
	lastCollectionTime time.Time
}

// NewSLACache creates a new cache with the specified TTL.
// Cleanup interval is set to 2x TTL.
//
// If ttl <= 0, defaults to 5 minutes.
func NewSLACache(ttl time.Duration) *SLACache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &SLACache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get returns the cached SLA domains if available.
// Returns nil, false on a cache miss.
func (sc *SLACache) Get() ([]models.SLADomain, bool) {
	if cached, found := sc.cache.Get(slaCacheKey); found {
		return cached.([]models.SLADomain), true
	}
	return nil, false
}

// Set stores the SLA domains with the default TTL.
func (sc *SLACache) Set(domains []models.SLADomain) {
	sc.cache.Set(slaCacheKey, domains, cache.DefaultExpiration)
	sc.lastCollectionMu.Lock()
	sc.lastCollectionTime = time.Now()
	sc.lastCollectionMu.Unlock()
}

// GetLastCollectionTime returns the timestamp of the last successful fetch.
func (sc *SLACache) GetLastCollectionTime() time.Time {
	sc.lastCollectionMu.RLock()
	defer sc.lastCollectionMu.RUnlock()
	return sc.lastCollectionTime
}

// TTL returns the configured cache TTL.
func (sc *SLACache) TTL() time.Duration {
	return sc.ttl
}

// Flush clears all cached data.
// Use on config reload when the Polaris tenant changes.
func (sc *SLACache) Flush() {
	sc.cache.Flush()
}
