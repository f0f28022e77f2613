package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// statsCache memoizes season reports in Redis. Entries are a cache, not
// a source of truth: they expire, and every mutation touching a season
// game invalidates its key.
type statsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func newStatsCache(rdb *redis.Client) *statsCache {
	return &statsCache{rdb: rdb, ttl: 5 * time.Minute}
}

func statsKey(seasonID string) string {
	return "seasonstats:" + seasonID
}

func (c *statsCache) get(ctx context.Context, seasonID string) (SeasonStats, bool) {
	if c == nil || c.rdb == nil {
		return SeasonStats{}, false
	}
	data, err := c.rdb.Get(ctx, statsKey(seasonID)).Bytes()
	if err != nil {
		return SeasonStats{}, false
	}
	var stats SeasonStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return SeasonStats{}, false
	}
	return stats, true
}

func (c *statsCache) set(ctx context.Context, seasonID string, stats SeasonStats) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, statsKey(seasonID), data, c.ttl)
}

func (c *statsCache) invalidate(ctx context.Context, seasonID string) {
	if c == nil || c.rdb == nil || seasonID == "" {
		return
	}
	c.rdb.Del(ctx, statsKey(seasonID))
}
