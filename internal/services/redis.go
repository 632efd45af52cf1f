package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheNamespace = "dlp:"

// RedisCache stores JSON values under the "dlp:" namespace.
// A nil *RedisCache is valid: reads miss, writes are dropped and SetNX always succeeds,
// so the catalog cache and webhook replay guard degrade to no-ops without Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redisURL and pings it before returning.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Println("Redis connection established")
	return &RedisCache{client: client}, nil
}

func namespaced(key string) string {
	return cacheNamespace + key
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, namespaced(key), payload, ttl).Err()
}

// Get decodes the cached value into dest. A miss returns redis.Nil.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return redis.Nil
	}
	payload, err := c.client.Get(ctx, namespaced(key)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// GetOrSet serves key from cache and falls back to load on a miss or a cache error.
// Failing to write the loaded value back is ignored.
func GetOrSet[T any](c *RedisCache, ctx context.Context, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) == nil {
		return cached, nil
	}

	fresh, err := load()
	if err != nil {
		return fresh, err
	}
	_ = c.Set(ctx, key, fresh, ttl)
	return fresh, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = namespaced(key)
	}
	return c.client.Del(ctx, full...).Err()
}

// SetNX claims key for ttl and reports whether this caller was first.
func (c *RedisCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if c == nil {
		return true, nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, namespaced(key), payload, ttl).Result()
}

func (c *RedisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// Client exposes the connection for the redsync locker; nil when caching is disabled.
func (c *RedisCache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}
