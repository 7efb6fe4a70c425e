package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

type Comment struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContentType enums.CommentContentType `gorm:"column:content_type;type:text;not null" json:"content_type"`
	ContentID   uuid.UUID                `gorm:"column:content_id;type:uuid;not null" json:"content_id"`
	UserID      uuid.UUID                `gorm:"column:user_id;type:uuid;not null" json:"user_id"`
	ParentID    *uuid.UUID               `gorm:"column:parent_id;type:uuid" json:"parent_id"`
	Content     string                   `gorm:"column:content;type:text;not null" json:"content"`
	IsEdited    bool                     `gorm:"column:is_edited;not null;default:false" json:"is_edited"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt           `gorm:"column:deleted_at;index" json:"-"`
}

type CommentReaction struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"column:comment_id;type:uuid;not null;uniqueIndex:idx_comment_reactions_unique" json:"comment_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_comment_reactions_unique" json:"user_id"`
	Emoji     string    `gorm:"column:emoji;type:text;not null;uniqueIndex:idx_comment_reactions_unique" json:"emoji"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
