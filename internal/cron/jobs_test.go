package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/withmetravel/withme-backend/internal/integrations"
)

type fakeRefresher struct {
	window  time.Duration
	summary integrations.RefreshSummary
	err     error
}

func (f *fakeRefresher) RefreshExpiring(_ context.Context, window time.Duration) (integrations.RefreshSummary, error) {
	f.window = window
	return f.summary, f.err
}

func TestTokenRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{summary: integrations.RefreshSummary{Attempted: 3, Refreshed: 3}}
	job, err := NewTokenRefreshJob(TokenRefreshJobParams{Logger: testLogger(), Refresher: refresher})
	require.NoError(t, err)
	assert.Equal(t, "integration-token-refresh", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, defaultRefreshWindow, refresher.window)
}

func TestTokenRefreshJobReportsPartialFailure(t *testing.T) {
	refresher := &fakeRefresher{
		summary: integrations.RefreshSummary{Attempted: 3, Refreshed: 1, Failed: 2},
		err:     multierr.Combine(errors.New("a"), errors.New("b")),
	}
	job, err := NewTokenRefreshJob(TokenRefreshJobParams{Logger: testLogger(), Refresher: refresher, Window: 2 * time.Hour})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 failed")
	assert.Equal(t, 2*time.Hour, refresher.window)
}

type fakeExpirer struct {
	olderThan time.Duration
	err       error
}

func (f *fakeExpirer) ExpireStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, f.err
}

func TestPermissionExpiryJob(t *testing.T) {
	expirer := &fakeExpirer{}
	job, err := NewPermissionExpiryJob(PermissionExpiryJobParams{Logger: testLogger(), Expirer: expirer, TTL: 72 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 72*time.Hour, expirer.olderThan)

	expirer.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

type fakeOutboxRepo struct {
	cutoff   time.Time
	attempts int
}

func (f *fakeOutboxRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time, attempts int) (int64, error) {
	f.cutoff = cutoff
	f.attempts = attempts
	return 0, nil
}

func TestOutboxRetentionJob(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: &fakeOutboxRepo{}})
	assert.Error(t, err, "max attempts is required")

	repo := &fakeOutboxRepo{}
	iface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: repo, MaxAttempts: 10})
	require.NoError(t, err)
	job := iface.(*outboxRetentionJob)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-outboxRetentionDays*24*time.Hour), repo.cutoff)
	assert.Equal(t, 10, repo.attempts)
}
