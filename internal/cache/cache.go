package cache

import (
	"context"
	"encoding/json"
	"time"

	"mou-dashboard/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin versioned-key cache on top of redis. A nil client makes
// every operation a no-op so the server can run without redis.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func New(address string, log *logger.Logger) *Cache {
	client := redis.NewClient(&redis.Options{Addr: address})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Warn("redis not available, running without cache", "address", address, "err", err)
		return &Cache{client: nil, log: log}
	}
	log.Info("redis connected", "address", address)
	return &Cache{client: client, log: log}
}

// NewWithClient wraps an existing client. For tests.
func NewWithClient(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "err", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "err", err)
	}
}

// GetVersion returns the current version counter for a key (0 if unset).
func (c *Cache) GetVersion(ctx context.Context, key string) int64 {
	if c.client == nil {
		return 0
	}
	v, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		return 0
	}
	return v
}

// IncrementVersion bumps a version counter, invalidating every cache key
// derived from it.
func (c *Cache) IncrementVersion(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.log.Warn("cache incr failed", "key", key, "err", err)
	}
}
