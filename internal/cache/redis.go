package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog-search/internal/domain"
)

const purgeScanCount = 500

// RedisCache stores pages as JSON strings with a Redis TTL.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a Redis-backed result cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a page from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) (*domain.SearchPage, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get search page: %w", err)
	}

	var page domain.SearchPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, fmt.Errorf("unmarshal search page: %w", err)
	}
	return &page, true, nil
}

// Put stores a page with the given TTL.
func (c *RedisCache) Put(ctx context.Context, key string, page *domain.SearchPage, ttl time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal search page: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set search page: %w", err)
	}
	return nil
}

// Invalidate removes one page.
func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del search page: %w", err)
	}
	return nil
}

// Purge deletes every key under KeyPrefix. SCAN keeps Redis responsive on
// large keyspaces; keys written during the scan may survive.
func (c *RedisCache) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, KeyPrefix+"*", purgeScanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan search pages: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del search pages: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
