package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"spotrunner-api/models"
)

const eventKeyPrefix = "spotrunner:event:"

// NewRedisClient connects to Redis with connection pooling. url may be a
// redis:// URL or a plain host:port.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	opts.PoolSize = 50
	opts.MinIdleConns = 5
	opts.MaxRetries = 3

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// HealthCheck pings Redis.
func HealthCheck(ctx context.Context, client redis.Cmdable) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// EventCache keeps event detail payloads in Redis. A nil *EventCache is a
// valid cache that never hits, so Redis stays optional.
type EventCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewEventCache(client redis.Cmdable, ttl time.Duration) *EventCache {
	return &EventCache{client: client, ttl: ttl}
}

func eventKey(id string) string {
	return eventKeyPrefix + id
}

func (c *EventCache) Get(ctx context.Context, id string) (*models.Event, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, eventKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("event cache read failed", "event", id, "error", err)
		}
		return nil, false
	}
	var event models.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		slog.Warn("dropping undecodable cached event", "event", id, "error", err)
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &event, true
}

func (c *EventCache) Set(ctx context.Context, event *models.Event) {
	if c == nil || event == nil {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event cache encode failed", "event", event.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, eventKey(event.ID), raw, c.ttl).Err(); err != nil {
		slog.Warn("event cache write failed", "event", event.ID, "error", err)
	}
}

func (c *EventCache) Invalidate(ctx context.Context, ids ...string) {
	if c == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = eventKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("event cache invalidation failed", "events", ids, "error", err)
	}
}
