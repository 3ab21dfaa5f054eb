// Package ratelimit implements a fixed-window request counter per caller
// identity. Exceeding the threshold rejects the request; nothing is queued or
// retried.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter reports whether a caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// memoryLimiter is the single-process implementation.
type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
}

// NewInMemory creates a fixed-window limiter allowing limit requests per period.
func NewInMemory(limit int, period time.Duration) Limiter {
	return &memoryLimiter{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, count: 1}
		// Opportunistic cleanup of expired windows keeps the map bounded by
		// the number of identities seen in the last period.
		if len(l.windows) > 1024 {
			for k, o := range l.windows {
				if now.Sub(o.start) >= l.period {
					delete(l.windows, k)
				}
			}
		}
		return true, nil
	}

	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}
