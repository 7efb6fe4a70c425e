package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/redis"
)

// Decision is the outcome of counting one request against a key.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Store counts requests per key. Implementations own their background work and
// release it in Close.
type Store interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

// New picks the backend named in cfg. The "off" backend returns nil, which the
// middleware treats as disabled.
func New(cfg config.RateLimitConfig, rdb *redis.Client, logg *logger.Logger) (Store, error) {
	if cfg.NormalizedBackend() == config.RateLimitBackendOff {
		return nil, nil
	}
	if cfg.Limit < 1 {
		return nil, fmt.Errorf("rate limit must be at least 1, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.Window)
	}
	switch cfg.NormalizedBackend() {
	case config.RateLimitBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		return NewRedis(rdb, cfg.Limit, cfg.Window), nil
	case config.RateLimitBackendMemory, "":
		return NewMemory(MemoryOptions{
			Limit:         cfg.Limit,
			Window:        cfg.Window,
			SweepInterval: cfg.SweepInterval,
			Logger:        logg,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", cfg.Backend)
	}
}
