package votes

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
	ItemInTrip(ctx context.Context, tripID, itemID uuid.UUID) (bool, error)
	FindVote(ctx context.Context, itemID, userID uuid.UUID) (*models.Vote, error)
	UpsertVote(ctx context.Context, itemID, userID uuid.UUID, voteType enums.VoteType) error
	DeleteVote(ctx context.Context, voteID uuid.UUID) error
	Tally(ctx context.Context, itemID uuid.UUID) (Tally, error)

	CreatePoll(ctx context.Context, poll *models.Poll, options []models.PollOption) error
	FindPoll(ctx context.Context, tripID, pollID uuid.UUID) (*models.Poll, error)
	ListOptions(ctx context.Context, pollID uuid.UUID) ([]models.PollOption, error)
	UpsertPollVote(ctx context.Context, pollID, optionID, userID uuid.UUID) error
	OptionCounts(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]int64, error)
	FindPollVote(ctx context.Context, pollID, userID uuid.UUID) (*models.PollVote, error)
}

// Tally is the aggregate over every vote row of one item.
type Tally struct {
	Up   int64
	Down int64
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

func (r *repository) ItemInTrip(ctx context.Context, tripID, itemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ItineraryItem{}).
		Where("id = ? AND trip_id = ?", itemID, tripID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindVote(ctx context.Context, itemID, userID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("itinerary_item_id = ? AND user_id = ?", itemID, userID).
		Take(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// UpsertVote relies on the (itinerary_item_id, user_id) unique index.
func (r *repository) UpsertVote(ctx context.Context, itemID, userID uuid.UUID, voteType enums.VoteType) error {
	vote := models.Vote{ItineraryItemID: itemID, UserID: userID, VoteType: voteType}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "itinerary_item_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"vote_type":  voteType,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&vote).Error
}

func (r *repository) DeleteVote(ctx context.Context, voteID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", voteID).Delete(&models.Vote{}).Error
}

func (r *repository) Tally(ctx context.Context, itemID uuid.UUID) (Tally, error) {
	var rows []struct {
		VoteType enums.VoteType
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select("vote_type, COUNT(*) AS total").
		Where("itinerary_item_id = ?", itemID).
		Group("vote_type").
		Scan(&rows).Error
	if err != nil {
		return Tally{}, err
	}
	var t Tally
	for _, row := range rows {
		switch row.VoteType {
		case enums.VoteUp:
			t.Up = row.Total
		case enums.VoteDown:
			t.Down = row.Total
		}
	}
	return t, nil
}

func (r *repository) CreatePoll(ctx context.Context, poll *models.Poll, options []models.PollOption) error {
	if err := r.db.WithContext(ctx).Create(poll).Error; err != nil {
		return err
	}
	for i := range options {
		options[i].PollID = poll.ID
	}
	return r.db.WithContext(ctx).Create(&options).Error
}

func (r *repository) FindPoll(ctx context.Context, tripID, pollID uuid.UUID) (*models.Poll, error) {
	var poll models.Poll
	if err := r.db.WithContext(ctx).Where("id = ? AND trip_id = ?", pollID, tripID).Take(&poll).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *repository) ListOptions(ctx context.Context, pollID uuid.UUID) ([]models.PollOption, error) {
	var options []models.PollOption
	err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Order("position").Find(&options).Error
	return options, err
}

// UpsertPollVote keeps one row per (poll, user); voting again moves it to the new option.
func (r *repository) UpsertPollVote(ctx context.Context, pollID, optionID, userID uuid.UUID) error {
	vote := models.PollVote{PollID: pollID, OptionID: optionID, UserID: userID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "poll_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"option_id":  optionID,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&vote).Error
}

func (r *repository) OptionCounts(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		OptionID uuid.UUID
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&models.PollVote{}).
		Select("option_id, COUNT(*) AS total").
		Where("poll_id = ?", pollID).
		Group("option_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.OptionID] = row.Total
	}
	return counts, nil
}

func (r *repository) FindPollVote(ctx context.Context, pollID, userID uuid.UUID) (*models.PollVote, error) {
	var vote models.PollVote
	if err := r.db.WithContext(ctx).Where("poll_id = ? AND user_id = ?", pollID, userID).Take(&vote).Error; err != nil {
		return nil, err
	}
	return &vote, nil
}
