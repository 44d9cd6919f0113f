package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisConfig configures the Redis search cache.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RedisCache implements Cache on Redis, for sharing cached searches between
// machines working through the same region.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "redis: ping %s", cfg.Addr)
	}
	return &RedisCache{client: rdb, prefix: cfg.KeyPrefix}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// GetCachedSearch returns nil on a miss.
func (c *RedisCache) GetCachedSearch(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "redis: get cached search")
	}
	return data, nil
}

// SetCachedSearch stores data with the given TTL.
func (c *RedisCache) SetCachedSearch(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return eris.Wrap(c.client.Set(ctx, c.key(key), data, ttl).Err(), "redis: set cached search")
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
