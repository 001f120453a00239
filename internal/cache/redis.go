package cache

import (
	"context"
	"errors"
	"time"

	"subcatalog/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache over a Redis connection.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis. An unreachable server is logged but not
// fatal: the catalog must keep serving from the store when the cache is down.
func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, cache reads will fall through to the store", "addr", addr, "error", err)
	} else {
		logger.Info("Connected to Redis", "addr", addr)
	}

	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
