package models

import (
	"time"

	"github.com/google/uuid"
)

type ItinerarySection struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TripID    uuid.UUID  `gorm:"column:trip_id;type:uuid;not null" json:"trip_id"`
	DayNumber int        `gorm:"column:day_number;not null" json:"day_number"`
	Title     *string    `gorm:"column:title;type:text" json:"title"`
	Date      *time.Time `gorm:"column:date;type:date" json:"date"`
	Position  int        `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ItineraryItem is one activity. A nil DayNumber means unscheduled.
type ItineraryItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TripID      uuid.UUID  `gorm:"column:trip_id;type:uuid;not null" json:"trip_id"`
	SectionID   *uuid.UUID `gorm:"column:section_id;type:uuid" json:"section_id"`
	Title       string     `gorm:"column:title;type:text;not null" json:"title"`
	Description *string    `gorm:"column:description;type:text" json:"description"`
	Location    *string    `gorm:"column:location;type:text" json:"location"`
	StartTime   *string    `gorm:"column:start_time;type:text" json:"start_time"`
	EndTime     *string    `gorm:"column:end_time;type:text" json:"end_time"`
	DayNumber   *int       `gorm:"column:day_number" json:"day_number"`
	Position    int        `gorm:"column:position;not null;default:0" json:"position"`
	CreatedBy   uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
