package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/withmetravel/withme-backend/pkg/logger"
)

type MemoryOptions struct {
	Limit         int
	Window        time.Duration
	SweepInterval time.Duration
	Logger        *logger.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Memory is a per-process sliding-window log. Safe for concurrent use; not
// shared across instances.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time
	logg   *logger.Logger

	mu   sync.Mutex
	hits map[string][]time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemory starts the sweep goroutine; call Close to stop it.
func NewMemory(opts MemoryOptions) *Memory {
	m := &Memory{
		limit:  opts.Limit,
		window: opts.Window,
		now:    opts.Now,
		logg:   opts.Logger,
		hits:   make(map[string][]time.Time),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.window <= 0 {
		m.window = time.Minute
	}
	if m.limit < 1 {
		m.limit = 1
	}
	interval := opts.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go m.sweepLoop(interval)
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := prune(m.hits[key], cutoff)
	decision := Decision{Limit: m.limit}
	if len(recent) >= m.limit {
		m.hits[key] = recent
		decision.ResetAfter = recent[0].Add(m.window).Sub(now)
		return decision, nil
	}

	recent = append(recent, now)
	m.hits[key] = recent
	decision.Allowed = true
	decision.Remaining = m.limit - len(recent)
	decision.ResetAfter = recent[0].Add(m.window).Sub(now)
	return decision, nil
}

// Sweep drops keys with no hits inside the window and returns how many were removed.
func (m *Memory) Sweep() int {
	cutoff := m.now().Add(-m.window)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, times := range m.hits {
		recent := prune(times, cutoff)
		if len(recent) == 0 {
			delete(m.hits, key)
			removed++
			continue
		}
		m.hits[key] = recent
	}
	return removed
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
	return nil
}

func (m *Memory) sweepLoop(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 && m.logg != nil {
				ctx := m.logg.WithField(context.Background(), "removed_keys", removed)
				m.logg.Debug(ctx, "ratelimit.sweep")
			}
		}
	}
}

// prune drops timestamps at or before cutoff; times are kept in ascending order.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0:0], times[i:]...)
}
