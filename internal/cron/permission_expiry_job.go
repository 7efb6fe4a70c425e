package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/withmetravel/withme-backend/pkg/logger"
)

const defaultPermissionRequestTTL = 30 * 24 * time.Hour

type accessRequestExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PermissionExpiryJobParams struct {
	Logger  *logger.Logger
	Expirer accessRequestExpirer
	TTL     time.Duration
}

func NewPermissionExpiryJob(params PermissionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("access request expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPermissionRequestTTL
	}
	return &permissionExpiryJob{logg: params.Logger, expirer: params.Expirer, ttl: ttl}, nil
}

type permissionExpiryJob struct {
	logg    *logger.Logger
	expirer accessRequestExpirer
	ttl     time.Duration
}

func (j *permissionExpiryJob) Name() string { return "permission-request-expiry" }

func (j *permissionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.expirer.ExpireStale(ctx, j.ttl)
	if err != nil {
		return fmt.Errorf("permission request expiry: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ttl_hours": int(j.ttl.Hours()),
		"expired":   expired,
	})
	j.logg.Info(logCtx, "access_requests.expired")
	return nil
}
