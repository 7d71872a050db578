// Package cache provides a TTL cache for technology-insight bundles keyed
// by a normalized technology set.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

// DefaultTTL is how long a cached insight bundle stays fresh.
const DefaultTTL = 24 * time.Hour

// SweepInterval is how often the periodic sweep removes stale entries
// independent of reads.
const SweepInterval = time.Hour

// Key normalizes a technology name list into a cache key: lower-cased,
// deduplicated, sorted, and joined.
func Key(technologies []string) string {
	seen := make(map[string]struct{}, len(technologies))
	normalized := make([]string, 0, len(technologies))
	for _, t := range technologies {
		name := strings.ToLower(strings.TrimSpace(t))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, "|")
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// InsightsCache caches computed technology insights so identical technology
// sets are not re-scored.
type InsightsCache interface {
	// Get returns the cached insights for key, or ok=false on a miss.
	// Entries older than the TTL are treated as misses and evicted.
	Get(ctx context.Context, key string) (*models.TechnologyInsights, bool)

	// Set unconditionally overwrites the entry for key.
	Set(ctx context.Context, key string, value *models.TechnologyInsights, analysisID uuid.UUID)

	// Stats returns the current counters.
	Stats() Stats
}

type memoryEntry struct {
	value      *models.TechnologyInsights
	insertedAt time.Time
	analysisID uuid.UUID
}

// MemoryCache is the default in-process insights cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time

	hits      int64
	misses    int64
	evictions int64
}

// NewMemoryCache creates an in-memory insights cache with the given TTL.
// A non-positive ttl falls back to DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements InsightsCache.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.TechnologyInsights, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if c.now().Sub(entry.insertedAt) > c.ttl {
		// Stale entries are evicted on read.
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.value, true
}

// Set implements InsightsCache.
func (c *MemoryCache) Set(_ context.Context, key string, value *models.TechnologyInsights, analysisID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryEntry{
		value:      value,
		insertedAt: c.now(),
		analysisID: analysisID,
	}
}

// Stats implements InsightsCache.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		HitRate:   hitRate,
	}
}

// Sweep removes all entries older than the TTL.
func (c *MemoryCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.insertedAt) > c.ttl {
			delete(c.entries, key)
			c.evictions++
		}
	}
}

// StartSweep starts a background goroutine that sweeps stale entries until
// ctx is done.
func (c *MemoryCache) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-ctx.Done():
				return
			}
		}
	}()
}

var _ InsightsCache = (*MemoryCache)(nil)
