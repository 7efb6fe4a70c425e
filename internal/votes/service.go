package votes

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

// Service handles itinerary item votes and trip polls.
type Service interface {
	Vote(ctx context.Context, tripID, userID uuid.UUID, input VoteInput) (*ItemVotes, error)
	ItemVotes(ctx context.Context, tripID, itemID, userID uuid.UUID) (*ItemVotes, error)
	CreatePoll(ctx context.Context, tripID, userID uuid.UUID, input CreatePollInput) (*PollView, error)
	VoteOption(ctx context.Context, tripID, pollID, userID uuid.UUID, input PollVoteInput) (*PollView, error)
	PollResults(ctx context.Context, tripID, pollID, userID uuid.UUID) (*PollView, error)
}

type VoteInput struct {
	ItemID   uuid.UUID      `json:"itemId"`
	VoteType enums.VoteType `json:"voteType"`
}

// ItemVotes is recomputed from all vote rows after every change.
type ItemVotes struct {
	ItemID    uuid.UUID       `json:"itemId"`
	UserVote  *enums.VoteType `json:"userVote"`
	NetCount  int64           `json:"netCount"`
	UpCount   int64           `json:"upCount"`
	DownCount int64           `json:"downCount"`
}

type CreatePollInput struct {
	Title    string     `json:"title" validate:"required,max=200"`
	Options  []string   `json:"options" validate:"min=2,max=20,dive,required,max=200"`
	ClosesAt *time.Time `json:"closesAt"`
}

type PollVoteInput struct {
	OptionID uuid.UUID `json:"optionId"`
}

type PollOptionResult struct {
	models.PollOption
	Votes int64 `json:"votes"`
}

type PollView struct {
	Poll         models.Poll        `json:"poll"`
	Options      []PollOptionResult `json:"options"`
	UserOptionID *uuid.UUID         `json:"userOptionId"`
	TotalVotes   int64              `json:"totalVotes"`
}

type ServiceParams struct {
	Repo    Repository
	Checker permissions.Checker
	Tx      db.TxRunner
	Outbox  outbox.Emitter
}

type service struct {
	repo    Repository
	checker permissions.Checker
	tx      db.TxRunner
	outbox  outbox.Emitter
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "votes repository required")
	}
	if params.Checker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "permission checker required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter required")
	}
	return &service{
		repo:    params.Repo,
		checker: params.Checker,
		tx:      params.Tx,
		outbox:  params.Outbox,
		now:     time.Now,
	}, nil
}

// requireParticipant lets any member or the creator through; public-trip browsers can read but not vote.
func (s *service) requireParticipant(ctx context.Context, tripID, userID uuid.UUID) (permissions.PermissionCheck, error) {
	return permissions.Require(ctx, s.checker, tripID, userID, permissions.CapParticipate)
}

func (s *service) Vote(ctx context.Context, tripID, userID uuid.UUID, input VoteInput) (*ItemVotes, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	if !input.VoteType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voteType must be up or down")
	}
	check, err := s.requireParticipant(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureItem(ctx, tripID, input.ItemID); err != nil {
		return nil, err
	}

	var result *ItemVotes
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindVote(ctx, input.ItemID, userID)
		switch {
		case err != nil && !db.IsNotFound(err):
			return err
		case existing != nil && existing.VoteType == input.VoteType:
			if err := repo.DeleteVote(ctx, existing.ID); err != nil {
				return err
			}
		default:
			if err := repo.UpsertVote(ctx, input.ItemID, userID, input.VoteType); err != nil {
				return err
			}
		}

		result, err = summarize(ctx, repo, input.ItemID, userID)
		if err != nil {
			return err
		}

		actor := &outbox.ActorRef{UserID: userID, TripID: &tripID}
		if check.Role != nil {
			actor.Role = string(*check.Role)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItineraryVoteChanged,
			AggregateType: enums.AggregateItineraryItem,
			AggregateID:   input.ItemID,
			Actor:         actor,
			Data: map[string]any{
				"trip_id":   tripID,
				"net_count": result.NetCount,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record vote")
	}
	return result, nil
}

func (s *service) ItemVotes(ctx context.Context, tripID, itemID, userID uuid.UUID) (*ItemVotes, error) {
	if _, err := permissions.RequireView(ctx, s.checker, tripID, userID); err != nil {
		return nil, err
	}
	if err := s.ensureItem(ctx, tripID, itemID); err != nil {
		return nil, err
	}
	result, err := summarize(ctx, s.repo, itemID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load votes")
	}
	return result, nil
}

func (s *service) ensureItem(ctx context.Context, tripID, itemID uuid.UUID) error {
	ok, err := s.repo.ItemInTrip(ctx, tripID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load itinerary item")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "itinerary item not found")
	}
	return nil
}

func summarize(ctx context.Context, repo Repository, itemID, userID uuid.UUID) (*ItemVotes, error) {
	tally, err := repo.Tally(ctx, itemID)
	if err != nil {
		return nil, err
	}
	out := &ItemVotes{
		ItemID:    itemID,
		UpCount:   tally.Up,
		DownCount: tally.Down,
		NetCount:  tally.Up - tally.Down,
	}
	if userID == uuid.Nil {
		return out, nil
	}
	mine, err := repo.FindVote(ctx, itemID, userID)
	if err != nil && !db.IsNotFound(err) {
		return nil, err
	}
	if mine != nil {
		vt := mine.VoteType
		out.UserVote = &vt
	}
	return out, nil
}

func (s *service) CreatePoll(ctx context.Context, tripID, userID uuid.UUID, input CreatePollInput) (*PollView, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	labels := make([]string, 0, len(input.Options))
	for _, raw := range input.Options {
		if label := strings.TrimSpace(raw); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a poll needs at least two options")
	}
	if input.ClosesAt != nil && !input.ClosesAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "closesAt must be in the future")
	}
	if _, err := permissions.Require(ctx, s.checker, tripID, userID, permissions.CapContribute); err != nil {
		return nil, err
	}

	poll := &models.Poll{TripID: tripID, Title: title, CreatedBy: userID, ClosesAt: input.ClosesAt}
	options := make([]models.PollOption, len(labels))
	for i, label := range labels {
		options[i] = models.PollOption{Label: label, Position: i}
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreatePoll(ctx, poll, options)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create poll")
	}
	return s.pollView(ctx, poll, userID)
}

func (s *service) VoteOption(ctx context.Context, tripID, pollID, userID uuid.UUID, input PollVoteInput) (*PollView, error) {
	if input.OptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "optionId is required")
	}
	if _, err := s.requireParticipant(ctx, tripID, userID); err != nil {
		return nil, err
	}
	poll, err := s.findPoll(ctx, tripID, pollID)
	if err != nil {
		return nil, err
	}
	if poll.ClosesAt != nil && !poll.ClosesAt.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "poll is closed")
	}
	options, err := s.repo.ListOptions(ctx, poll.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load poll options")
	}
	valid := false
	for _, opt := range options {
		if opt.ID == input.OptionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "option does not belong to this poll")
	}

	if err := s.repo.UpsertPollVote(ctx, poll.ID, input.OptionID, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record poll vote")
	}
	return s.pollView(ctx, poll, userID)
}

func (s *service) PollResults(ctx context.Context, tripID, pollID, userID uuid.UUID) (*PollView, error) {
	if _, err := permissions.RequireView(ctx, s.checker, tripID, userID); err != nil {
		return nil, err
	}
	poll, err := s.findPoll(ctx, tripID, pollID)
	if err != nil {
		return nil, err
	}
	return s.pollView(ctx, poll, userID)
}

func (s *service) findPoll(ctx context.Context, tripID, pollID uuid.UUID) (*models.Poll, error) {
	poll, err := s.repo.FindPoll(ctx, tripID, pollID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "poll not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load poll")
	}
	return poll, nil
}

func (s *service) pollView(ctx context.Context, poll *models.Poll, userID uuid.UUID) (*PollView, error) {
	options, err := s.repo.ListOptions(ctx, poll.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load poll options")
	}
	counts, err := s.repo.OptionCounts(ctx, poll.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count poll votes")
	}

	view := &PollView{Poll: *poll, Options: make([]PollOptionResult, len(options))}
	for i, opt := range options {
		view.Options[i] = PollOptionResult{PollOption: opt, Votes: counts[opt.ID]}
		view.TotalVotes += counts[opt.ID]
	}
	if userID != uuid.Nil {
		mine, err := s.repo.FindPollVote(ctx, poll.ID, userID)
		if err != nil && !db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load poll vote")
		}
		if mine != nil {
			view.UserOptionID = &mine.OptionID
		}
	}
	return view, nil
}
