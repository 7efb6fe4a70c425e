package ratelimit

import (
	"context"
	"time"
)

type fixedWindowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, time.Duration, error)
}

// Redis is a fixed-window counter shared by every API instance.
type Redis struct {
	counter fixedWindowCounter
	limit   int
	window  time.Duration
}

func NewRedis(counter fixedWindowCounter, limit int, window time.Duration) *Redis {
	if window <= 0 {
		window = time.Minute
	}
	if limit < 1 {
		limit = 1
	}
	return &Redis{counter: counter, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	allowed, count, reset, err := r.counter.FixedWindowAllow(ctx, key, int64(r.limit), r.window)
	if err != nil {
		return Decision{}, err
	}
	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: allowed, Limit: r.limit, Remaining: remaining, ResetAfter: reset}, nil
}

// Close is a no-op; the redis client is owned by the caller.
func (r *Redis) Close() error { return nil }
