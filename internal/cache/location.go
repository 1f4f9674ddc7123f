// Package cache keeps location option lists in Redis. Location data changes
// rarely and every wizard session fetches the same upper levels.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/travelspot-editor/backend/internal/domain"
	"github.com/pkordes/travelspot-editor/backend/internal/location"
)

// DefaultTTL is used when NewLocationCache gets a non-positive ttl.
const DefaultTTL = time.Hour

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache.NewRedisClient: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache.NewRedisClient: ping: %w", err)
	}
	return rdb, nil
}

// LocationCache is a read-through location.Fetcher. Redis failures are
// logged and the upstream fetcher is used instead; failed fetches are never
// cached.
type LocationCache struct {
	next location.Fetcher
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *slog.Logger
}

// NewLocationCache wraps next with a Redis cache.
func NewLocationCache(next location.Fetcher, rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) *LocationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &LocationCache{next: next, rdb: rdb, ttl: ttl, log: log}
}

// Key returns the cache key of one option list.
func Key(level location.Level, parentID int64) string {
	return fmt.Sprintf("locations:%s:%d", level, parentID)
}

// LocationOptions implements location.Fetcher.
func (c *LocationCache) LocationOptions(ctx context.Context, level location.Level, parentID int64) ([]domain.LocationOption, error) {
	key := Key(level, parentID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var opts []domain.LocationOption
		if jerr := json.Unmarshal(raw, &opts); jerr == nil {
			return opts, nil
		}
		c.log.WarnContext(ctx, "dropping corrupt location cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.WarnContext(ctx, "location cache read failed", "key", key, "error", err)
	}

	opts, err := c.next.LocationOptions(ctx, level, parentID)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(opts)
	if err == nil {
		err = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	if err != nil {
		c.log.WarnContext(ctx, "location cache write failed", "key", key, "error", err)
	}
	return opts, nil
}

// Invalidate drops every cached option list.
func (c *LocationCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, "locations:*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache.LocationCache.Invalidate: %w", err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache.LocationCache.Invalidate: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
