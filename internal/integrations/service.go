package integrations

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

const refreshBatchSize = 200

// RefreshSummary reports one sweep over expiring integrations.
type RefreshSummary struct {
	Attempted int
	Refreshed int
	Failed    int
}

type ServiceParams struct {
	Repo      Repository
	Refresher TokenRefresher
	Notifier  notifications.Notifier
	Logger    *logger.Logger
}

// Service keeps linked OAuth accounts usable by refreshing tokens ahead of expiry.
type Service struct {
	repo      Repository
	refresher TokenRefresher
	notifier  notifications.Notifier
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "integrations repository required")
	}
	if params.Refresher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token refresher required")
	}
	return &Service{
		repo:      params.Repo,
		refresher: params.Refresher,
		notifier:  params.Notifier,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// RefreshExpiring refreshes every integration expiring within window. Each one
// is attempted independently; the returned error aggregates the failures.
func (s *Service) RefreshExpiring(ctx context.Context, window time.Duration) (RefreshSummary, error) {
	now := s.now().UTC()
	rows, err := s.repo.ListExpiring(ctx, now.Add(window), refreshBatchSize)
	if err != nil {
		return RefreshSummary{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expiring integrations")
	}

	var (
		summary RefreshSummary
		errs    error
	)
	for _, integration := range rows {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		summary.Attempted++
		if err := s.refreshOne(ctx, integration, now); err != nil {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("integration %s: %w", integration.ID, err))
			continue
		}
		summary.Refreshed++
	}
	return summary, errs
}

func (s *Service) refreshOne(ctx context.Context, integration models.UserIntegration, now time.Time) error {
	if integration.RefreshToken == nil || *integration.RefreshToken == "" {
		return s.fail(ctx, integration, fmt.Errorf("missing refresh token"), now)
	}
	token, err := s.refresher.Refresh(ctx, integration.Provider, *integration.RefreshToken)
	if err != nil {
		return s.fail(ctx, integration, err, now)
	}

	stored := StoredToken{AccessToken: token.AccessToken}
	if token.RefreshToken != "" && token.RefreshToken != *integration.RefreshToken {
		rt := token.RefreshToken
		stored.RefreshToken = &rt
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		stored.ExpiresAt = &expiry
	}
	if err := s.repo.SaveToken(ctx, integration.ID, stored, now); err != nil {
		return fmt.Errorf("save refreshed token: %w", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, integration models.UserIntegration, cause error, now time.Time) error {
	err := multierr.Append(cause, s.repo.RecordFailure(ctx, integration.ID, cause.Error(), now))
	if s.notifier != nil {
		s.notifier.Notify(ctx, nil, notifications.Input{
			UserID:  integration.UserID,
			Type:    enums.NotificationIntegrationFail,
			Title:   "Reconnect " + string(integration.Provider),
			Message: "We couldn't refresh your linked account. Please reconnect it.",
			Link:    "/settings/integrations",
		})
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"integration_id": integration.ID.String(),
			"provider":       string(integration.Provider),
			"user_id":        integration.UserID.String(),
		})
		s.logg.Warn(logCtx, "integrations.refresh_failed")
	}
	return err
}
