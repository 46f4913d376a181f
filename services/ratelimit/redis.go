package ratelimitsvc

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shule/core"
)

type redisLimiter struct {
	rdb *redis.Client
}

var _ core.RateLimiter = (*redisLimiter)(nil)

// NewRedisLimiter counts attempts in fixed windows backed by Redis keys with
// a TTL, so limits hold across processes and restarts.
func NewRedisLimiter(conf *core.Config) (*redisLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisLimiter{rdb: rdb}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, scope, client string, limit core.WindowLimit) error {
	key := fmt.Sprintf("ratelimit:%s:%s", scope, client)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "incrementing rate limit counter")
	}
	if count == 1 {
		// first attempt opens the window
		if err = l.rdb.Expire(ctx, key, limit.Window).Err(); err != nil {
			return errors.Wrap(err, "setting rate limit window")
		}
	}
	if int(count) > limit.Max {
		return core.ErrRateLimited
	}
	return nil
}

func (l *redisLimiter) Close() error {
	return l.rdb.Close()
}
