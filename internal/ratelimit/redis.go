package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts in redis so the window is shared across replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	Window time.Duration
}

// NewRedis creates a fixed-window limiter backed by redis INCR/EXPIRE.
func NewRedis(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().Unix() / int64(l.Window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		// First hit in this window owns setting the expiry.
		if err := l.client.Expire(ctx, redisKey, l.Window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(l.limit), nil
}
