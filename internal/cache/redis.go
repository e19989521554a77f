package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DocumentCache keeps the last upstream category listing between requests.
type DocumentCache interface {
	// Get returns the cached document; ok is false on a miss.
	Get(ctx context.Context) (data []byte, ok bool, err error)
	Set(ctx context.Context, data []byte) error
	Invalidate(ctx context.Context) error
}

type redisDocumentCache struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

func NewRedisDocumentCache(redisClient *redis.Client, ttl time.Duration) DocumentCache {
	return &redisDocumentCache{
		redisClient: redisClient,
		key:         "zara:categories:raw",
		ttl:         ttl,
	}
}

func (c *redisDocumentCache) Get(ctx context.Context) ([]byte, bool, error) {
	val, err := c.redisClient.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached document %s: %w", c.key, err)
	}

	return val, true, nil
}

func (c *redisDocumentCache) Set(ctx context.Context, data []byte) error {
	if err := c.redisClient.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache document %s: %w", c.key, err)
	}
	return nil
}

func (c *redisDocumentCache) Invalidate(ctx context.Context) error {
	if err := c.redisClient.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached document %s: %w", c.key, err)
	}
	return nil
}
