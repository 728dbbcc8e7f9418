package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bluele/gcache"
	"github.com/redis/go-redis/v9"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
	"github.com/Never2333/tfl-status/internal/stations"
)

const redisKeyPrefix = "tfl:search:"

// ResultCache is the per-query result cache: an in-process LRU with
// per-entry expiry checked on read, optionally backed by Redis so several
// instances share results.
type ResultCache struct {
	local gcache.Cache
	rdb   *redis.Client
	log   *slog.Logger
}

// NewResultCache creates an LRU cache of size entries. clock may be nil.
func NewResultCache(size int, clock gcache.Clock) *ResultCache {
	if size <= 0 {
		size = 1024
	}
	b := gcache.New(size).LRU()
	if clock != nil {
		b = b.Clock(clock)
	}
	return &ResultCache{local: b.Build(), log: logger.With("cache")}
}

// WithRedis adds a shared second level. A nil client leaves the cache local.
func (c *ResultCache) WithRedis(rdb *redis.Client) *ResultCache {
	c.rdb = rdb
	return c
}

// Get returns a cached result for the normalized query key. The slice is
// the caller's own copy.
func (c *ResultCache) Get(ctx context.Context, key string) ([]stations.Station, bool) {
	if v, err := c.local.Get(key); err == nil {
		metrics.CacheHitsTotal.WithLabelValues("local").Inc()
		return cloneStations(v.([]stations.Station)), true
	}
	if c.rdb != nil {
		if list, ttl, ok := c.getRemote(ctx, key); ok {
			metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
			if ttl > 0 {
				c.local.SetWithExpire(key, cloneStations(list), ttl)
			}
			return list, true
		}
	}
	metrics.CacheMissesTotal.Inc()
	return nil, false
}

func (c *ResultCache) getRemote(ctx context.Context, key string) ([]stations.Station, time.Duration, bool) {
	s, err := c.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Debug("redis get failed", "key", key, "error", err)
		}
		return nil, 0, false
	}
	var list []stations.Station
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		c.log.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return nil, 0, false
	}
	if list == nil {
		list = []stations.Station{}
	}
	ttl, _ := c.rdb.PTTL(ctx, redisKeyPrefix+key).Result()
	return list, ttl, true
}

// Set stores list under key for ttl. A non-positive ttl is ignored.
func (c *ResultCache) Set(ctx context.Context, key string, list []stations.Station, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	list = cloneStations(list)
	c.local.SetWithExpire(key, list, ttl)
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(list)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, string(b), ttl).Err(); err != nil {
		c.log.Debug("redis set failed", "key", key, "error", err)
	}
}

// cloneStations copies the outer slice; Station values are immutable
func cloneStations(list []stations.Station) []stations.Station {
	out := make([]stations.Station, len(list))
	copy(out, list)
	return out
}

// Purge drops every local entry
func (c *ResultCache) Purge() {
	c.local.Purge()
}
