package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rezerv/internal/models"
)

// CachedResources wraps resource lookups with an optional Redis
// read-through cache. Resources change rarely; a short TTL keeps policy
// edits visible without hammering the database on every admission.
type CachedResources struct {
	db    *DB
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedResources builds the cache wrapper. With a nil client every
// lookup goes straight to the database.
func NewCachedResources(db *DB, redisClient *redis.Client, ttl time.Duration) *CachedResources {
	return &CachedResources{db: db, redis: redisClient, ttl: ttl}
}

// GetResource returns a resource by id, or nil if unknown.
func (c *CachedResources) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	key := "resource:" + id
	var cached models.Resource
	if c.readCache(ctx, key, &cached) {
		return &cached, nil
	}

	resource, err := c.db.GetResource(ctx, id)
	if err != nil || resource == nil {
		return resource, err
	}
	c.writeCache(ctx, key, resource)
	return resource, nil
}

// Invalidate drops a cached resource after a policy change.
func (c *CachedResources) Invalidate(ctx context.Context, id string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, "resource:"+id).Err()
}

func (c *CachedResources) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *CachedResources) writeCache(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, string(data), c.ttl).Err()
}

// Ping checks cache connectivity for readiness probes.
func (c *CachedResources) Ping(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
