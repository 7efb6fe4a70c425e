package comments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	"github.com/withmetravel/withme-backend/pkg/pagination"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ItemTripID(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListTopLevel(ctx context.Context, params listParams) ([]models.Comment, error)
	ListReplies(ctx context.Context, parentIDs []uuid.UUID) ([]models.Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindReaction(ctx context.Context, commentID, userID uuid.UUID, emoji string) (*models.CommentReaction, error)
	CreateReaction(ctx context.Context, reaction *models.CommentReaction) error
	DeleteReaction(ctx context.Context, id uuid.UUID) error
	ReactionCounts(ctx context.Context, commentIDs []uuid.UUID) ([]reactionCount, error)
}

type listParams struct {
	ContentType enums.CommentContentType
	ContentID   uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

type reactionCount struct {
	CommentID uuid.UUID
	Emoji     string
	Total     int64
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

func (r *repository) ItemTripID(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var item models.ItineraryItem
	if err := r.db.WithContext(ctx).Select("trip_id").Where("id = ?", itemID).Take(&item).Error; err != nil {
		return uuid.Nil, err
	}
	return item.TripID, nil
}

func (r *repository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListTopLevel pages newest first on (created_at, id).
func (r *repository) ListTopLevel(ctx context.Context, params listParams) ([]models.Comment, error) {
	query := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ? AND parent_id IS NULL", params.ContentType, params.ContentID)
	if params.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID)
	}
	var rows []models.Comment
	err := query.Order("created_at DESC, id DESC").Limit(params.Limit).Find(&rows).Error
	return rows, err
}

func (r *repository) ListReplies(ctx context.Context, parentIDs []uuid.UUID) ([]models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateContent(ctx context.Context, id uuid.UUID, content string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(map[string]any{
		"content":    content,
		"is_edited":  true,
		"updated_at": at,
	}).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{}).Error
}

func (r *repository) FindReaction(ctx context.Context, commentID, userID uuid.UUID, emoji string) (*models.CommentReaction, error) {
	var reaction models.CommentReaction
	err := r.db.WithContext(ctx).
		Where("comment_id = ? AND user_id = ? AND emoji = ?", commentID, userID, emoji).
		Take(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *repository) CreateReaction(ctx context.Context, reaction *models.CommentReaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

func (r *repository) DeleteReaction(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CommentReaction{}).Error
}

func (r *repository) ReactionCounts(ctx context.Context, commentIDs []uuid.UUID) ([]reactionCount, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var rows []reactionCount
	err := r.db.WithContext(ctx).Model(&models.CommentReaction{}).
		Select("comment_id, emoji, COUNT(*) AS total").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id, emoji").
		Order("emoji").
		Scan(&rows).Error
	return rows, err
}
