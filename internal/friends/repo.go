package friends

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
)

// FriendView is one of the caller's friends with profile details.
type FriendView struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	AvatarURL    *string   `json:"avatar_url"`
	FriendsSince time.Time `json:"friends_since"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ProfileExists(ctx context.Context, userID uuid.UUID) (bool, error)
	ProfileName(ctx context.Context, userID uuid.UUID) (string, error)
	FindPendingBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error)
	AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error)
	CreateRequest(ctx context.Context, req *models.FriendRequest) error
	FindRequest(ctx context.Context, requestID uuid.UUID) (*models.FriendRequest, error)
	UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, from, to enums.FriendRequestStatus, at time.Time) (bool, error)
	CreateFriendship(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error)
	DeleteFriendship(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendView, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error)
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

// canonicalPair orders two ids so that the first sorts before the second.
func canonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}

func (r *repository) ProfileExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *repository) ProfileName(ctx context.Context, userID uuid.UUID) (string, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", userID).Take(&profile).Error; err != nil {
		return "", err
	}
	if profile.Name != nil && *profile.Name != "" {
		return *profile.Name, nil
	}
	return profile.Email, nil
}

func (r *repository) FindPendingBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.FriendRequestPending).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Take(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	first, second := canonicalPair(a, b)
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id_1 = ? AND user_id_2 = ?", first, second).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateRequest(ctx context.Context, req *models.FriendRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := r.db.WithContext(ctx).Where("id = ?", requestID).Take(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRequestStatus moves a request from one status to another; false means it was no longer in from.
func (r *repository) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, from, to enums.FriendRequestStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, from).
		Updates(map[string]any{"status": to, "responded_at": at})
	return result.RowsAffected > 0, result.Error
}

// CreateFriendship stores the canonical pair; an existing friendship is left as is.
func (r *repository) CreateFriendship(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	first, second := canonicalPair(a, b)
	row := &models.Friendship{UserID1: first, UserID2: second}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id_1"}, {Name: "user_id_2"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	var stored models.Friendship
	if err := r.db.WithContext(ctx).Where("user_id_1 = ? AND user_id_2 = ?", first, second).Take(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *repository) DeleteFriendship(ctx context.Context, a, b uuid.UUID) (bool, error) {
	first, second := canonicalPair(a, b)
	result := r.db.WithContext(ctx).
		Where("user_id_1 = ? AND user_id_2 = ?", first, second).
		Delete(&models.Friendship{})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendView, error) {
	var rows []FriendView
	err := r.db.WithContext(ctx).
		Table("friendships AS f").
		Select(`p.id AS user_id, p.email, p.name, p.avatar_url, f.created_at AS friends_since`).
		Joins("JOIN profiles p ON p.id = CASE WHEN f.user_id_1 = ? THEN f.user_id_2 ELSE f.user_id_1 END", userID).
		Where("f.user_id_1 = ? OR f.user_id_2 = ?", userID, userID).
		Order("f.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// ListPending returns incoming and outgoing pending requests, newest first.
func (r *repository) ListPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	var rows []models.FriendRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND (sender_id = ? OR receiver_id = ?)", enums.FriendRequestPending, userID, userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}
