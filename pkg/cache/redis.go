package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cloneforge/cloneforge-engine/pkg/models"
)

const redisKeyPrefix = "insights:"

// RedisCache stores insight bundles in Redis so multiple engine instances
// share one cache. Expiry is delegated to Redis TTLs, so the eviction
// counter only reflects reads that found an entry already gone.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache creates a Redis-backed insights cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("insights-cache"),
	}
}

// Get implements InsightsCache.
func (c *RedisCache) Get(ctx context.Context, key string) (*models.TechnologyInsights, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache read failed", zap.Error(err))
		c.misses.Add(1)
		return nil, false
	}

	var value models.TechnologyInsights
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, redisKeyPrefix+key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return &value, true
}

// Set implements InsightsCache.
func (c *RedisCache) Set(ctx context.Context, key string, value *models.TechnologyInsights, analysisID uuid.UUID) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache entry not serializable", zap.String("analysis_id", analysisID.String()), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}

// Stats implements InsightsCache.
func (c *RedisCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	size := 0
	if n, err := c.client.DBSize(context.Background()).Result(); err == nil {
		size = int(n)
	}

	return Stats{
		Hits:    hits,
		Misses:  misses,
		Size:    size,
		HitRate: hitRate,
	}
}

var _ InsightsCache = (*RedisCache)(nil)
