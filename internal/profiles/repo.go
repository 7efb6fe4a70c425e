package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/withmetravel/withme-backend/pkg/db/models"
)

// Repository persists identity-provider users as local profiles.
type Repository interface {
	Ensure(ctx context.Context, profile *models.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Ensure inserts the profile if absent and reloads the stored row into profile.
func (r *repository) Ensure(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", profile.ID).Take(profile).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
