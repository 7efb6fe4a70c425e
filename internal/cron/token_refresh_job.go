package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/withmetravel/withme-backend/internal/integrations"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

const defaultRefreshWindow = time.Hour

type tokenRefresher interface {
	RefreshExpiring(ctx context.Context, window time.Duration) (integrations.RefreshSummary, error)
}

type TokenRefreshJobParams struct {
	Logger    *logger.Logger
	Refresher tokenRefresher
	Window    time.Duration
}

func NewTokenRefreshJob(params TokenRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("integration refresher required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultRefreshWindow
	}
	return &tokenRefreshJob{logg: params.Logger, refresher: params.Refresher, window: window}, nil
}

type tokenRefreshJob struct {
	logg      *logger.Logger
	refresher tokenRefresher
	window    time.Duration
}

func (j *tokenRefreshJob) Name() string { return "integration-token-refresh" }

// Run reports partial failure as a job failure, after every integration has been tried.
func (j *tokenRefreshJob) Run(ctx context.Context) error {
	summary, err := j.refresher.RefreshExpiring(ctx, j.window)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"attempted": summary.Attempted,
		"refreshed": summary.Refreshed,
		"failed":    summary.Failed,
	})
	if err != nil {
		for _, e := range multierr.Errors(err) {
			j.logg.Warn(j.logg.WithField(logCtx, "error", e.Error()), "integrations.refresh_error")
		}
		return fmt.Errorf("token refresh: %d of %d failed: %w", summary.Failed, summary.Attempted, err)
	}
	j.logg.Info(logCtx, "integrations.refresh_complete")
	return nil
}
