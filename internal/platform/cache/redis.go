package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cuenca-ubate/internal/config"
)

// ErrCacheMiss is returned by Get when the key is absent
var ErrCacheMiss = errors.New("key not found in cache")

const (
	// CatalogKey holds the normalized image list shared by every instance
	CatalogKey = "catalog:images"
	flowPrefix = "identification:flow:"

	connectTimeout = 5 * time.Second
)

// FlowKey is the cache key of an identification flow
func FlowKey(id string) string {
	return flowPrefix + id
}

// RedisClient stores JSON values in Redis or Valkey
type RedisClient struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedisClient connects and pings; it fails when the cache is disabled
func NewRedisClient(cfg config.CacheConfig) (*RedisClient, error) {
	if !cfg.Enabled {
		return nil, errors.New("cache is disabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.Database,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close() //nolint:errcheck // Connection cleanup in error path
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}

	return &RedisClient{client: rdb, defaultTTL: cfg.DefaultTTL}, nil
}

// Get decodes the value stored at key into result
func (r *RedisClient) Get(ctx context.Context, key string, result interface{}) error {
	return r.decode(key, r.client.Get(ctx, key), result)
}

// GetEx decodes the value stored at key and pushes its expiry ttl into the future
func (r *RedisClient) GetEx(ctx context.Context, key string, result interface{}, ttl time.Duration) error {
	return r.decode(key, r.client.GetEx(ctx, key, r.ttl(ttl)), result)
}

func (r *RedisClient) decode(key string, cmd *redis.StringCmd, result interface{}) error {
	val, err := cmd.Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("%w: %s", ErrCacheMiss, key)
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(val, result); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Set stores value as JSON; a zero ttl uses the configured default
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl(ttl)).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (r *RedisClient) ttl(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return r.defaultTTL
	}
	return ttl
}

// Delete removes key; deleting a missing key is not an error
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Health pings the server
func (r *RedisClient) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// FlushCache empties the selected database
func (r *RedisClient) FlushCache(ctx context.Context) error {
	if err := r.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
