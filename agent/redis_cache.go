package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON encoded values in Redis so that several processes
// share session state.
type RedisCache[S any] struct {
	rdb redis.UniversalClient
}

func NewRedisCache[S any](rdb redis.UniversalClient) *RedisCache[S] {
	return &RedisCache[S]{rdb: rdb}
}

func (c *RedisCache[S]) Set(ctx context.Context, key string, val S, ttl time.Duration) error {
	data, err := sonic.Marshal(val)
	if err != nil {
		return fmt.Errorf("redis cache marshal %q: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis cache get %q: %w", key, err)
	}
	var val S
	if err := sonic.Unmarshal(data, &val); err != nil {
		return zero, false, fmt.Errorf("redis cache unmarshal %q: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisCache[S]) Del(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis cache del %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis cache exists %q: %w", key, err)
	}
	return n > 0, nil
}

var _ Cache[int] = (*RedisCache[int])(nil)
