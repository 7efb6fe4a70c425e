package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/withmetravel/withme-backend/pkg/logger"
)

const notificationRetentionDays = 30

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationsCleanupRepo
	Retention  int
}

type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      notificationsCleanupRepo
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes read notifications older than the retention window; unread ones are kept.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notifications.cleanup_complete")
	return nil
}
