package integrations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
)

type Repository interface {
	ListExpiring(ctx context.Context, before time.Time, limit int) ([]models.UserIntegration, error)
	SaveToken(ctx context.Context, id uuid.UUID, token StoredToken, at time.Time) error
	RecordFailure(ctx context.Context, id uuid.UUID, message string, at time.Time) error
}

// StoredToken is what gets persisted after a refresh. A nil RefreshToken keeps the old one.
type StoredToken struct {
	AccessToken  string
	RefreshToken *string
	ExpiresAt    *time.Time
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListExpiring returns integrations with a refresh token whose access token expires before the cutoff.
func (r *repository) ListExpiring(ctx context.Context, before time.Time, limit int) ([]models.UserIntegration, error) {
	var rows []models.UserIntegration
	err := r.db.WithContext(ctx).
		Where("refresh_token IS NOT NULL AND expires_at IS NOT NULL AND expires_at < ?", before).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SaveToken(ctx context.Context, id uuid.UUID, token StoredToken, at time.Time) error {
	updates := map[string]any{
		"access_token":    token.AccessToken,
		"expires_at":      token.ExpiresAt,
		"last_refresh_at": at,
		"last_error":      nil,
		"updated_at":      at,
	}
	if token.RefreshToken != nil {
		updates["refresh_token"] = *token.RefreshToken
	}
	return r.db.WithContext(ctx).Model(&models.UserIntegration{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) RecordFailure(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.UserIntegration{}).Where("id = ?", id).Updates(map[string]any{
		"last_error": message,
		"updated_at": at,
	}).Error
}
