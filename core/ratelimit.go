package core

import (
	"context"
	"errors"
)

// ErrRateLimited is returned by RateLimiter.Allow once a client exhausts its
// window allowance.
var ErrRateLimited = errors.New("too many requests, please try again later")

// RateLimiter counts attempts per (scope, client) pair within a window and
// denies once the limit is reached. Counters reset when the window elapses;
// there is no explicit unlock.
type RateLimiter interface {
	// Allow records an attempt for client under scope and returns
	// ErrRateLimited when the limit for that window is exceeded.
	Allow(ctx context.Context, scope, client string, limit WindowLimit) error
}
