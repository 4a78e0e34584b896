package implementations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cuenca-ubate/internal/domain/gallery"
	"cuenca-ubate/internal/platform/cache"
)

// ErrCacheUnavailable is returned by Health when no Redis/Valkey client is configured
var ErrCacheUnavailable = errors.New("cache unavailable")

type sharedStore interface {
	Get(ctx context.Context, key string, result interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) error
}

// CacheService shares snapshots between instances through Redis/Valkey.
// Without a client every read misses and every write is skipped.
type CacheService struct {
	store sharedStore
}

// NewCacheService creates a cache service; client may be nil
func NewCacheService(client *cache.RedisClient) *CacheService {
	if client == nil {
		return &CacheService{}
	}
	return &CacheService{store: client}
}

var _ gallery.SnapshotCache = (*CacheService)(nil)

// Enabled reports whether a client is configured
func (c *CacheService) Enabled() bool {
	return c.store != nil
}

// Get reads a cached value into result
func (c *CacheService) Get(ctx context.Context, key string, result interface{}) error {
	if c.store == nil {
		return fmt.Errorf("%w: %s", cache.ErrCacheMiss, key)
	}
	return c.store.Get(ctx, key, result)
}

// Set caches a value
func (c *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.store == nil {
		return nil
	}
	return c.store.Set(ctx, key, value, ttl)
}

// Delete removes a cached value
func (c *CacheService) Delete(ctx context.Context, key string) error {
	if c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}

// Health checks the connection
func (c *CacheService) Health(ctx context.Context) error {
	if c.store == nil {
		return ErrCacheUnavailable
	}
	return c.store.Health(ctx)
}
