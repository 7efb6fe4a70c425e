package cron

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/redis"
)

// Lock guards a maintenance cycle so that two workers never sweep the same
// trips concurrently.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type leaseBackend interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// LeaseLock holds a Redis key for at most ttl. A crashed worker's lease simply
// lapses, so the TTL should cover the slowest expected cycle.
type LeaseLock struct {
	backend leaseBackend
	key     string
	ttl     time.Duration
	token   string
}

func NewLeaseLock(backend leaseBackend, key string, ttl time.Duration) (*LeaseLock, error) {
	switch {
	case backend == nil:
		return nil, errors.New("cron lease needs a redis backend")
	case key == "":
		return nil, errors.New("cron lease needs a key")
	case ttl <= 0:
		return nil, fmt.Errorf("cron lease ttl must be positive, got %s", ttl)
	}
	return &LeaseLock{backend: backend, key: key, ttl: ttl}, nil
}

func (l *LeaseLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	won, err := l.backend.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim lease %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release drops the key only if it still carries our token. A lease that
// lapsed and was claimed by another worker is theirs now.
func (l *LeaseLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	holder, err := l.backend.Get(ctx, l.key)
	switch {
	case redis.IsNil(err):
		return nil
	case err != nil:
		return fmt.Errorf("inspect lease %s: %w", l.key, err)
	case holder != token:
		return nil
	}
	if err := l.backend.Del(ctx, l.key); err != nil {
		return fmt.Errorf("drop lease %s: %w", l.key, err)
	}
	return nil
}

// LocalLock serialises cycles inside one process. It is what a single dev
// worker runs with when no Redis is configured.
type LocalLock struct {
	held atomic.Bool
}

func (l *LocalLock) Acquire(context.Context) (bool, error) {
	return l.held.CompareAndSwap(false, true), nil
}

func (l *LocalLock) Release(context.Context) error {
	l.held.Store(false)
	return nil
}
