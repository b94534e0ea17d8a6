// Package cache stores projected event summaries in Redis. Summaries may be
// slightly stale; every committed booking and event change invalidates the
// affected keys.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/metrics"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "bookmyslot:"
	eventListKey = keyPrefix + "events"
)

func eventKey(id string) string { return keyPrefix + "event:" + id }

// RedisCache is a SummaryCache backed by Redis. Redis failures are logged and
// reported as misses so reads fall through to the store.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache returns a RedisCache writing entries with the given TTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// GetEvent returns a cached event summary.
func (c *RedisCache) GetEvent(ctx context.Context, id string) (*model.EventSummary, bool) {
	var s model.EventSummary
	if !c.get(ctx, eventKey(id), &s) {
		return nil, false
	}
	return &s, true
}

// SetEvent caches an event summary.
func (c *RedisCache) SetEvent(ctx context.Context, summary *model.EventSummary) {
	c.set(ctx, eventKey(summary.ID), summary)
}

// GetEventList returns the cached summary list.
func (c *RedisCache) GetEventList(ctx context.Context) ([]model.EventSummary, bool) {
	var list []model.EventSummary
	if !c.get(ctx, eventListKey, &list) {
		return nil, false
	}
	return list, true
}

// SetEventList caches the summary list.
func (c *RedisCache) SetEventList(ctx context.Context, summaries []model.EventSummary) {
	c.set(ctx, eventListKey, summaries)
}

// Invalidate drops the event's summary and the summary list.
func (c *RedisCache) Invalidate(ctx context.Context, eventID string) {
	if err := c.client.Del(ctx, eventKey(eventID), eventListKey).Err(); err != nil {
		c.logger.Warn("summary cache invalidate failed", "event_id", eventID, "error", err)
	}
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.TrackCacheLookup(metrics.CacheMiss)
		} else {
			metrics.TrackCacheLookup(metrics.CacheError)
			c.logger.Warn("summary cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		metrics.TrackCacheLookup(metrics.CacheError)
		c.logger.Warn("summary cache entry corrupt", "key", key, "error", err)
		return false
	}
	metrics.TrackCacheLookup(metrics.CacheHit)
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("summary cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Warn("summary cache set failed", "key", key, "error", err)
	}
}

// Nop is a SummaryCache that stores nothing.
type Nop struct{}

func (Nop) GetEvent(context.Context, string) (*model.EventSummary, bool) { return nil, false }
func (Nop) SetEvent(context.Context, *model.EventSummary) {}
func (Nop) GetEventList(context.Context) ([]model.EventSummary, bool) { return nil, false }
func (Nop) SetEventList(context.Context, []model.EventSummary) {}
func (Nop) Invalidate(context.Context, string) {}
