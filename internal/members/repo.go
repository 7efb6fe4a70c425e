package members

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
)

// MemberView is a membership row joined with the member's profile.
type MemberView struct {
	ID        uuid.UUID          `json:"id"`
	TripID    uuid.UUID          `json:"trip_id"`
	UserID    uuid.UUID          `json:"user_id"`
	Role      enums.TripRole     `json:"role"`
	Status    enums.MemberStatus `json:"status"`
	InvitedBy *uuid.UUID         `json:"invited_by"`
	JoinedAt  *time.Time         `json:"joined_at"`
	Email     string             `json:"email"`
	Name      *string            `json:"name"`
	AvatarURL *string            `json:"avatar_url"`
	CreatedAt time.Time          `json:"created_at"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, tripID uuid.UUID) ([]MemberView, error)
	Find(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
	Create(ctx context.Context, member *models.TripMember) error
	Update(ctx context.Context, memberID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, memberID uuid.UUID) error
	TripCreator(ctx context.Context, tripID uuid.UUID) (uuid.UUID, error)
	TripName(ctx context.Context, tripID uuid.UUID) (string, error)
	ProfileExists(ctx context.Context, userID uuid.UUID) (bool, error)
	FixInvalidRoles(ctx context.Context, valid []enums.TripRole, replacement enums.TripRole) (int64, error)
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

func (r *repository) List(ctx context.Context, tripID uuid.UUID) ([]MemberView, error) {
	var rows []MemberView
	err := r.db.WithContext(ctx).
		Table("trip_members AS m").
		Select("m.id, m.trip_id, m.user_id, m.role, m.status, m.invited_by, m.joined_at, m.created_at, p.email, p.name, p.avatar_url").
		Joins("LEFT JOIN profiles p ON p.id = m.user_id").
		Where("m.trip_id = ?", tripID).
		Order("m.created_at ASC, m.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Find(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	var member models.TripMember
	if err := r.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).Take(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) Create(ctx context.Context, member *models.TripMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) Update(ctx context.Context, memberID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.TripMember{}).Where("id = ?", memberID).Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, memberID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", memberID).Delete(&models.TripMember{}).Error
}

func (r *repository) TripCreator(ctx context.Context, tripID uuid.UUID) (uuid.UUID, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Select("id, created_by").Where("id = ?", tripID).Take(&trip).Error; err != nil {
		return uuid.Nil, err
	}
	return trip.CreatedBy, nil
}

func (r *repository) TripName(ctx context.Context, tripID uuid.UUID) (string, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Select("id, name").Where("id = ?", tripID).Take(&trip).Error; err != nil {
		return "", err
	}
	return trip.Name, nil
}

func (r *repository) ProfileExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// FixInvalidRoles rewrites every role outside valid to replacement and reports how many rows changed.
func (r *repository) FixInvalidRoles(ctx context.Context, valid []enums.TripRole, replacement enums.TripRole) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TripMember{}).
		Where("role NOT IN ?", valid).
		Updates(map[string]any{"role": replacement})
	return result.RowsAffected, result.Error
}
