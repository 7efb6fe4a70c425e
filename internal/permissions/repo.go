package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
)

// TripAccess is the slice of a trip row the resolver needs.
type TripAccess struct {
	ID        uuid.UUID
	CreatedBy uuid.UUID
	IsPublic  bool
}

// Repository loads the rows permission checks are computed from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetTripAccess(ctx context.Context, tripID uuid.UUID) (*TripAccess, error)
	GetActiveMembership(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetTripAccess(ctx context.Context, tripID uuid.UUID) (*TripAccess, error) {
	var access TripAccess
	err := r.db.WithContext(ctx).
		Model(&models.Trip{}).
		Select("id, created_by, is_public").
		Where("id = ?", tripID).
		Take(&access).Error
	if err != nil {
		return nil, err
	}
	return &access, nil
}

// GetActiveMembership returns nil without error when the user has no active membership.
func (r *repository) GetActiveMembership(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	var member models.TripMember
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND user_id = ? AND status = ?", tripID, userID, enums.MemberStatusActive).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
