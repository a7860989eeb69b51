package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisCatalogCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCatalogCache creates a catalog cache on a shared Redis client.
func NewRedisCatalogCache(client *redis.Client, prefix string) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		prefix: prefix,
	}
}

// BuildKey creates a cache key from catalog request parameters.
func (c *RedisCatalogCache) BuildKey(provider, operation, query string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, provider, operation, query)
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return data, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisCatalogCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
