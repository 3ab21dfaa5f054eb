// Package cache provides the read-through cache used by listing endpoints.
// Authorization decisions are never stored here; a failed or stale cache can
// only cost an extra database read, never a wrong permission answer.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is the port injected into services. Implementations must treat every
// failure as a miss: Get returns (nil, false), Set and DeletePrefix are best
// effort.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	DeletePrefix(ctx context.Context, prefix string)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryCache is the fallback when no redis address is configured.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewInMemory creates a process-local TTL cache.
func NewInMemory() Cache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}
