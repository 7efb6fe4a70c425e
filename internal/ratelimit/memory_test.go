package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestMemory(t *testing.T, limit int, window time.Duration) (*Memory, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMemory(MemoryOptions{Limit: limit, Window: window, SweepInterval: time.Hour, Now: clock.Now})
	t.Cleanup(func() { _ = m.Close() })
	return m, clock
}

func TestMemory_SlidingWindow(t *testing.T) {
	m, clock := newTestMemory(t, 2, time.Minute)
	ctx := context.Background()

	d, err := m.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	clock.Advance(30 * time.Second)
	d, _ = m.Allow(ctx, "ip:1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = m.Allow(ctx, "ip:1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.ResetAfter)

	// first hit slides out; the second still counts
	clock.Advance(31 * time.Second)
	d, _ = m.Allow(ctx, "ip:1")
	assert.True(t, d.Allowed)
	d, _ = m.Allow(ctx, "ip:1")
	assert.False(t, d.Allowed)

	d, _ = m.Allow(ctx, "ip:2")
	assert.True(t, d.Allowed, "keys are independent")
}

func TestMemory_SweepDropsIdleKeys(t *testing.T) {
	m, clock := newTestMemory(t, 5, time.Minute)
	ctx := context.Background()

	_, _ = m.Allow(ctx, "a")
	clock.Advance(45 * time.Second)
	_, _ = m.Allow(ctx, "b")
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	m.mu.Lock()
	_, hasA := m.hits["a"]
	_, hasB := m.hits["b"]
	m.mu.Unlock()
	assert.False(t, hasA)
	assert.True(t, hasB)
}

func TestMemory_ConcurrentAllowNeverExceedsLimit(t *testing.T) {
	m, _ := newTestMemory(t, 50, time.Minute)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := m.Allow(ctx, "shared")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemory_CloseIsIdempotent(t *testing.T) {
	m := NewMemory(MemoryOptions{Limit: 1, Window: time.Second, SweepInterval: time.Millisecond})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestMemory_ZeroLimitDoesNotPanic(t *testing.T) {
	m, _ := newTestMemory(t, 0, time.Minute)
	ctx := context.Background()

	d, err := m.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Limit)

	d, err = m.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
