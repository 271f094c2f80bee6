package traffic

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache shares provider reports between FleetTrack instances through Redis.
// A nil *Cache is a valid, disabled cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to redisURL. An empty URL disables caching and returns nil.
func NewCache(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	if redisURL == "" {
		util.Component("traffic").Info("redis url not provided, traffic cache disabled")
		return nil, nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	util.Component("traffic").WithField("ttl", ttl).Info("redis traffic cache initialized")
	return &Cache{client: client, ttl: ttl}, nil
}

func cacheKey(provider string) string { return "fleettrack:traffic:" + provider }

// Get returns the cached report of provider. A miss returns (nil, nil).
func (c *Cache) Get(ctx context.Context, provider string) (*model.TrafficReport, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, cacheKey(provider)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var r model.TrafficReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Set stores a provider report for the cache TTL.
func (c *Cache) Set(ctx context.Context, r *model.TrafficReport) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(r.Source), data, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
