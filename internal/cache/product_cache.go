package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// kv is the part of RedisClient the product cache needs.
type kv interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// ProductCache caches product details (with variants) as JSON.
type ProductCache struct {
	redis kv
	ttl   time.Duration
}

// NewProductCache creates a new ProductCache.
func NewProductCache(redis *RedisClient, ttl time.Duration) *ProductCache {
	return &ProductCache{redis: redis, ttl: ttl}
}

// keyByID returns the Redis key of a product detail.
func (c *ProductCache) keyByID(id int) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// Get returns the cached product, or nil without error on a miss.
func (c *ProductCache) Get(ctx context.Context, id int) (*models.Product, error) {
	raw, err := c.redis.Get(ctx, c.keyByID(id))
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p models.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached product: %w", err)
	}
	return &p, nil
}

// Set stores p under its id.
func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	return c.redis.Set(ctx, c.keyByID(p.ID), string(data), c.ttl)
}

// Invalidate drops the cached details of ids.
func (c *ProductCache) Invalidate(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.keyByID(id))
	}
	return c.redis.Delete(ctx, keys...)
}
