package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache implements Cache on a shared redis instance so invalidation on one
// replica is visible to all of them.
type redisCache struct {
	client *redis.Client
}

// NewRedis wraps an existing redis client as a Cache.
func NewRedis(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// redis.Nil is an ordinary miss; anything else degrades to one.
		if err != redis.Nil {
			log.Printf("WARN: cache get %q: %v", key, err)
		}
		return nil, false
	}
	return value, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Printf("WARN: cache set %q: %v", key, err)
	}
}

func (c *redisCache) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("WARN: cache scan %q: %v", prefix, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("WARN: cache delete prefix %q: %v", prefix, err)
	}
}
