package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/withmetravel/withme-backend/pkg/logger"
)

const outboxRetentionDays = 7

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	Repository  outboxRetentionRepo
	Retention   int
	MaxAttempts int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, terminalAttempts int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if params.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		repo:        params.Repository,
		retention:   retention,
		maxAttempts: params.MaxAttempts,
		now:         time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	repo        outboxRetentionRepo
	retention   int
	maxAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox.retention_complete")
	return nil
}
