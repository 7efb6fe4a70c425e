package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

// UserIntegration stores OAuth tokens for a linked third-party account.
type UserIntegration struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID                 `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	Provider      enums.IntegrationProvider `gorm:"column:provider;type:text;not null" json:"provider"`
	AccessToken   string                    `gorm:"column:access_token;type:text;not null" json:"-"`
	RefreshToken  *string                   `gorm:"column:refresh_token;type:text" json:"-"`
	ExpiresAt     *time.Time                `gorm:"column:expires_at" json:"expires_at"`
	LastRefreshAt *time.Time                `gorm:"column:last_refresh_at" json:"last_refresh_at"`
	LastError     *string                   `gorm:"column:last_error;type:text" json:"last_error"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
