package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withmetravel/withme-backend/pkg/config"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, window time.Duration) (bool, int64, time.Duration, error) {
	if f.err != nil {
		return false, 0, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], window, nil
}

func TestRedis_Allow(t *testing.T) {
	store := NewRedis(&fakeCounter{}, 2, time.Minute)
	ctx := context.Background()

	d, err := store.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	_, _ = store.Allow(ctx, "user:1")
	d, err = store.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.Minute, d.ResetAfter)
}

func TestRedis_PropagatesErrors(t *testing.T) {
	store := NewRedis(&fakeCounter{err: errors.New("conn refused")}, 2, time.Minute)
	_, err := store.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNew_SelectsBackend(t *testing.T) {
	off, err := New(config.RateLimitConfig{Backend: "off"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, off)

	mem, err := New(config.RateLimitConfig{Backend: "memory", Limit: 1, Window: time.Second}, nil, nil)
	require.NoError(t, err)
	_, ok := mem.(*Memory)
	assert.True(t, ok)
	require.NoError(t, mem.Close())

	_, err = New(config.RateLimitConfig{Backend: "redis", Limit: 1, Window: time.Second}, nil, nil)
	assert.Error(t, err)
}

func TestNew_RejectsNonPositiveLimit(t *testing.T) {
	_, err := New(config.RateLimitConfig{Backend: "memory", Limit: 0, Window: time.Second}, nil, nil)
	assert.Error(t, err)
	_, err = New(config.RateLimitConfig{Backend: "memory", Limit: 5}, nil, nil)
	assert.Error(t, err)
}

func TestRedis_ClampsLimit(t *testing.T) {
	store := NewRedis(&fakeCounter{}, 0, time.Minute)
	d, err := store.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Limit)
}
