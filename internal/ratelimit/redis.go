package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:ratelimit:"

// Redis is a fixed-window counter shared by every API instance.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
	clock  clock.Clock
}

func NewRedis(ctx context.Context, redisURL string, limit int, window time.Duration, clk clock.Clock) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if limit < 1 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Redis{client: client, limit: int64(limit), window: window, clock: clk}, nil
}

// windowKey names the counter for key in the current window.
func (r *Redis) windowKey(key string) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, r.clock.Now().UnixNano()/int64(r.window))
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := r.windowKey(key)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= r.limit, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
