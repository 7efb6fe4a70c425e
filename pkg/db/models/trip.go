package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

type Trip struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;type:text;not null" json:"name"`
	Description   *string    `gorm:"column:description;type:text" json:"description"`
	DestinationID *uuid.UUID `gorm:"column:destination_id;type:uuid" json:"destination_id"`
	StartDate     *time.Time `gorm:"column:start_date;type:date" json:"start_date"`
	EndDate       *time.Time `gorm:"column:end_date;type:date" json:"end_date"`
	CreatedBy     uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	IsPublic      bool       `gorm:"column:is_public;not null;default:false" json:"is_public"`
	Slug          string     `gorm:"column:slug;type:text;not null;uniqueIndex" json:"slug"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TripMember is one user's membership in a trip. Role is free text in the
// database so legacy values survive until the role repair job runs.
type TripMember struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TripID    uuid.UUID          `gorm:"column:trip_id;type:uuid;not null;uniqueIndex:idx_trip_members_trip_user" json:"trip_id"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_trip_members_trip_user" json:"user_id"`
	Role      enums.TripRole     `gorm:"column:role;type:text;not null" json:"role"`
	Status    enums.MemberStatus `gorm:"column:status;type:text;not null" json:"status"`
	InvitedBy *uuid.UUID         `gorm:"column:invited_by;type:uuid" json:"invited_by"`
	JoinedAt  *time.Time         `gorm:"column:joined_at" json:"joined_at"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// PermissionRequest asks a trip's managers for access.
type PermissionRequest struct {
	ID            uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TripID        uuid.UUID                     `gorm:"column:trip_id;type:uuid;not null" json:"trip_id"`
	UserID        uuid.UUID                     `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	RequestedRole enums.TripRole                `gorm:"column:requested_role;type:text;not null" json:"requested_role"`
	Status        enums.PermissionRequestStatus `gorm:"column:status;type:text;not null" json:"status"`
	Message       *string                       `gorm:"column:message;type:text" json:"message"`
	ResolvedBy    *uuid.UUID                    `gorm:"column:resolved_by;type:uuid" json:"resolved_by"`
	ResolvedAt    *time.Time                    `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt     time.Time                     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
