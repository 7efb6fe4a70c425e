package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

type Vote struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItineraryItemID uuid.UUID      `gorm:"column:itinerary_item_id;type:uuid;not null;uniqueIndex:idx_votes_item_user" json:"itinerary_item_id"`
	UserID          uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_votes_item_user" json:"user_id"`
	VoteType        enums.VoteType `gorm:"column:vote_type;type:text;not null" json:"vote_type"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type Poll struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TripID    uuid.UUID  `gorm:"column:trip_id;type:uuid;not null" json:"trip_id"`
	Title     string     `gorm:"column:title;type:text;not null" json:"title"`
	CreatedBy uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	ClosesAt  *time.Time `gorm:"column:closes_at" json:"closes_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

type PollOption struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PollID   uuid.UUID `gorm:"column:poll_id;type:uuid;not null" json:"poll_id"`
	Label    string    `gorm:"column:label;type:text;not null" json:"label"`
	Position int       `gorm:"column:position;not null;default:0" json:"position"`
}

type PollVote struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PollID    uuid.UUID `gorm:"column:poll_id;type:uuid;not null;uniqueIndex:idx_poll_votes_poll_user" json:"poll_id"`
	OptionID  uuid.UUID `gorm:"column:option_id;type:uuid;not null" json:"option_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_poll_votes_poll_user" json:"user_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
