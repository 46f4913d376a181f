package ratelimitsvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/shule/core"
)

type (
	window struct {
		count   int
		resetAt time.Time
	}

	memoryLimiter struct {
		mu      sync.Mutex
		windows map[string]*window
	}
)

var _ core.RateLimiter = (*memoryLimiter)(nil)

// NewMemoryLimiter is the in-process twin of the Redis limiter, used in tests
// and single-node deployments without Redis.
func NewMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{windows: make(map[string]*window)}
}

func (l *memoryLimiter) Allow(_ context.Context, scope, client string, limit core.WindowLimit) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := scope + ":" + client
	now := time.Now()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(limit.Window)}
		return nil
	}
	w.count++
	if w.count > limit.Max {
		return core.ErrRateLimited
	}
	return nil
}
