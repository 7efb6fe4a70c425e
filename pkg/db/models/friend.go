package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

type FriendRequest struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SenderID    uuid.UUID                 `gorm:"column:sender_id;type:uuid;not null" json:"sender_id"`
	ReceiverID  uuid.UUID                 `gorm:"column:receiver_id;type:uuid;not null" json:"receiver_id"`
	Status      enums.FriendRequestStatus `gorm:"column:status;type:text;not null" json:"status"`
	RespondedAt *time.Time                `gorm:"column:responded_at" json:"responded_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Friendship stores each pair once with UserID1 < UserID2.
type Friendship struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID1   uuid.UUID `gorm:"column:user_id_1;type:uuid;not null;uniqueIndex:idx_friendships_pair" json:"user_id_1"`
	UserID2   uuid.UUID `gorm:"column:user_id_2;type:uuid;not null;uniqueIndex:idx_friendships_pair" json:"user_id_2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
