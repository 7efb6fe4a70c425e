package trips

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	"github.com/withmetravel/withme-backend/pkg/pagination"
)

// Repository persists trips and the creator's membership row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, trip *models.Trip) error
	CreateMember(ctx context.Context, member *models.TripMember) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Trip, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
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

func (r *repository) Create(ctx context.Context, trip *models.Trip) error {
	return r.db.WithContext(ctx).Create(trip).Error
}

func (r *repository) CreateMember(ctx context.Context, member *models.TripMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&trip).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// ListForUser returns trips the user created or actively belongs to, newest first.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Trip, error) {
	memberTrips := r.db.Model(&models.TripMember{}).
		Select("trip_id").
		Where("user_id = ? AND status = ?", userID, enums.MemberStatusActive)

	query := r.db.WithContext(ctx).
		Model(&models.Trip{}).
		Where("created_by = ? OR id IN (?)", userID, memberTrips)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var trips []models.Trip
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Trip{}).Error
}
