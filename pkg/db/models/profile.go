package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile mirrors an identity-provider user. ID equals the auth subject.
type Profile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:text;not null" json:"email"`
	Name      *string   `gorm:"column:name;type:text" json:"name"`
	AvatarURL *string   `gorm:"column:avatar_url;type:text" json:"avatar_url"`
	IsAdmin   bool      `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
