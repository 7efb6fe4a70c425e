package itinerary

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListItems(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryItem, error)
	ListSections(ctx context.Context, tripID uuid.UUID) ([]models.ItinerarySection, error)
	FindItem(ctx context.Context, tripID, itemID uuid.UUID) (*models.ItineraryItem, error)
	NextPosition(ctx context.Context, tripID uuid.UUID, dayNumber *int) (int, error)
	CreateItem(ctx context.Context, item *models.ItineraryItem) error
	UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	FindSectionByDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (*models.ItinerarySection, error)
	CreateSection(ctx context.Context, section *models.ItinerarySection) error
	NextSectionPosition(ctx context.Context, tripID uuid.UUID) (int, error)
	MoveItem(ctx context.Context, itemID uuid.UUID, dayNumber *int, position int) error
	ReorderSections(ctx context.Context, tripID uuid.UUID, dayNumbers []int) error
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

// ListItems orders scheduled days first, then the unscheduled bucket, each by position.
func (r *repository) ListItems(ctx context.Context, tripID uuid.UUID) ([]models.ItineraryItem, error) {
	var items []models.ItineraryItem
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("CASE WHEN day_number IS NULL THEN 1 ELSE 0 END, day_number, position, created_at").
		Find(&items).Error
	return items, err
}

func (r *repository) ListSections(ctx context.Context, tripID uuid.UUID) ([]models.ItinerarySection, error) {
	var sections []models.ItinerarySection
	err := r.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("position, day_number").Find(&sections).Error
	return sections, err
}

func (r *repository) FindItem(ctx context.Context, tripID, itemID uuid.UUID) (*models.ItineraryItem, error) {
	var item models.ItineraryItem
	if err := r.db.WithContext(ctx).Where("id = ? AND trip_id = ?", itemID, tripID).Take(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) NextPosition(ctx context.Context, tripID uuid.UUID, dayNumber *int) (int, error) {
	query := r.db.WithContext(ctx).Model(&models.ItineraryItem{}).Where("trip_id = ?", tripID)
	if dayNumber == nil {
		query = query.Where("day_number IS NULL")
	} else {
		query = query.Where("day_number = ?", *dayNumber)
	}
	var next int
	err := query.Select("COALESCE(MAX(position) + 1, 0)").Scan(&next).Error
	return next, err
}

func (r *repository) CreateItem(ctx context.Context, item *models.ItineraryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.ItineraryItem{}).Where("id = ?", itemID).Updates(updates).Error
}

func (r *repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.ItineraryItem{}).Error
}

func (r *repository) FindSectionByDay(ctx context.Context, tripID uuid.UUID, dayNumber int) (*models.ItinerarySection, error) {
	var section models.ItinerarySection
	if err := r.db.WithContext(ctx).Where("trip_id = ? AND day_number = ?", tripID, dayNumber).Take(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *repository) CreateSection(ctx context.Context, section *models.ItinerarySection) error {
	return r.db.WithContext(ctx).Create(section).Error
}

func (r *repository) NextSectionPosition(ctx context.Context, tripID uuid.UUID) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&models.ItinerarySection{}).
		Where("trip_id = ?", tripID).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&next).Error
	return next, err
}

// MoveItem delegates the shift arithmetic to update_itinerary_item_position so the
// whole day is renumbered atomically under row locks.
func (r *repository) MoveItem(ctx context.Context, itemID uuid.UUID, dayNumber *int, position int) error {
	return r.db.WithContext(ctx).Exec("SELECT update_itinerary_item_position(?, ?, ?)", itemID, dayNumber, position).Error
}

func (r *repository) ReorderSections(ctx context.Context, tripID uuid.UUID, dayNumbers []int) error {
	days := make(pq.Int64Array, len(dayNumbers))
	for i, d := range dayNumbers {
		days[i] = int64(d)
	}
	return r.db.WithContext(ctx).Exec("SELECT update_itinerary_section_order(?, ?::integer[])", tripID, days).Error
}
