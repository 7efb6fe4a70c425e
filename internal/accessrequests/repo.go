package accessrequests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	TripExists(ctx context.Context, tripID uuid.UUID) (bool, error)
	TripName(ctx context.Context, tripID uuid.UUID) (string, error)
	FindMembership(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
	FindLatest(ctx context.Context, tripID, userID uuid.UUID) (*models.PermissionRequest, error)
	FindByID(ctx context.Context, tripID, requestID uuid.UUID) (*models.PermissionRequest, error)
	FindByIDForUpdate(ctx context.Context, tripID, requestID uuid.UUID) (*models.PermissionRequest, error)
	Create(ctx context.Context, req *models.PermissionRequest) error
	Update(ctx context.Context, requestID uuid.UUID, updates map[string]any) error
	ListPending(ctx context.Context, tripID uuid.UUID) ([]models.PermissionRequest, error)
	UpsertMember(ctx context.Context, member *models.TripMember) error
	DenyPendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
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

func (r *repository) TripExists(ctx context.Context, tripID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Trip{}).Where("id = ?", tripID).Count(&count).Error
	return count > 0, err
}

func (r *repository) TripName(ctx context.Context, tripID uuid.UUID) (string, error) {
	var trip models.Trip
	if err := r.db.WithContext(ctx).Select("id, name").Where("id = ?", tripID).Take(&trip).Error; err != nil {
		return "", err
	}
	return trip.Name, nil
}

func (r *repository) FindMembership(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	var member models.TripMember
	if err := r.db.WithContext(ctx).Where("trip_id = ? AND user_id = ?", tripID, userID).Take(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindLatest returns the caller's most recent request for the trip.
func (r *repository) FindLatest(ctx context.Context, tripID, userID uuid.UUID) (*models.PermissionRequest, error) {
	var req models.PermissionRequest
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND user_id = ?", tripID, userID).
		Order("created_at DESC, id DESC").
		Take(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindByID(ctx context.Context, tripID, requestID uuid.UUID) (*models.PermissionRequest, error) {
	var req models.PermissionRequest
	if err := r.db.WithContext(ctx).Where("id = ? AND trip_id = ?", requestID, tripID).Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByIDForUpdate locks the row on Postgres; sqlite serialises writers anyway.
func (r *repository) FindByIDForUpdate(ctx context.Context, tripID, requestID uuid.UUID) (*models.PermissionRequest, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req models.PermissionRequest
	if err := query.Where("id = ? AND trip_id = ?", requestID, tripID).Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) Create(ctx context.Context, req *models.PermissionRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) Update(ctx context.Context, requestID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.PermissionRequest{}).Where("id = ?", requestID).Updates(updates).Error
}

func (r *repository) ListPending(ctx context.Context, tripID uuid.UUID) ([]models.PermissionRequest, error) {
	var rows []models.PermissionRequest
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND status = ?", tripID, enums.PermissionRequestPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertMember inserts or overwrites the (trip, user) membership with member's role and status.
func (r *repository) UpsertMember(ctx context.Context, member *models.TripMember) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trip_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "status", "joined_at", "updated_at"}),
		}).
		Create(member).Error
}

func (r *repository) DenyPendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PermissionRequest{}).
		Where("status = ? AND created_at < ?", enums.PermissionRequestPending, cutoff).
		Updates(map[string]any{"status": enums.PermissionRequestDenied, "resolved_at": now})
	return result.RowsAffected, result.Error
}
