package friends

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

// Service runs the friend request workflow and friendship lookups.
type Service interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	Respond(ctx context.Context, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*RespondResult, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendView, error)
	ListPending(ctx context.Context, userID uuid.UUID) (*PendingRequests, error)
	Unfriend(ctx context.Context, userID, otherID uuid.UUID) error
}

type RespondResult struct {
	Request    models.FriendRequest `json:"request"`
	Friendship *models.Friendship   `json:"friendship,omitempty"`
}

type PendingRequests struct {
	Incoming []models.FriendRequest `json:"incoming"`
	Outgoing []models.FriendRequest `json:"outgoing"`
}

type ServiceParams struct {
	Repo     Repository
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
}

type service struct {
	repo     Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "friends repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifier required")
	}
	return &service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox, notifier: params.Notifier, now: time.Now}, nil
}

// SendRequest allows one pending request per unordered pair and none between existing friends.
func (s *service) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if receiverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver_id is required")
	}
	if senderID == receiverID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot send a friend request to yourself")
	}

	exists, err := s.repo.ProfileExists(ctx, receiverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receiver")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	friends, err := s.repo.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check friendship")
	}
	if friends {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "already friends")
	}
	if _, err := s.repo.FindPendingBetween(ctx, senderID, receiverID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "friend request already pending")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending requests")
	}

	senderName, err := s.repo.ProfileName(ctx, senderID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sender")
	}
	if senderName == "" {
		senderName = "Someone"
	}

	req := &models.FriendRequest{SenderID: senderID, ReceiverID: receiverID, Status: enums.FriendRequestPending}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateRequest(ctx, req); err != nil {
			return err
		}
		s.notifier.Notify(ctx, tx, notifications.Input{
			UserID:  receiverID,
			Type:    enums.NotificationFriendRequest,
			Title:   "New friend request",
			Message: fmt.Sprintf("%s sent you a friend request", senderName),
			Link:    "/friends",
		})
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "friend request already pending")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create friend request")
	}
	return req, nil
}

// Respond lets only the receiver accept or decline. Accepting creates the friendship
// and notifies the sender in the same transaction.
func (s *service) Respond(ctx context.Context, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*RespondResult, error) {
	if decision != enums.DecisionAccept && decision != enums.DecisionDecline {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be accept or decline")
	}
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "friend request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load friend request")
	}
	if req.ReceiverID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the receiver can respond to this request")
	}
	if req.Status != enums.FriendRequestPending {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "friend request already processed")
	}

	receiverName, err := s.repo.ProfileName(ctx, actorID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receiver")
	}
	if receiverName == "" {
		receiverName = "Someone"
	}

	status := enums.FriendRequestDeclined
	if decision.Positive() {
		status = enums.FriendRequestAccepted
	}
	now := s.now().UTC()
	result := &RespondResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateRequestStatus(ctx, req.ID, enums.FriendRequestPending, status, now)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeValidation, "friend request already processed")
		}
		req.Status = status
		req.RespondedAt = &now
		result.Request = *req
		if status != enums.FriendRequestAccepted {
			return nil
		}

		friendship, err := repo.CreateFriendship(ctx, req.SenderID, req.ReceiverID)
		if err != nil {
			return err
		}
		result.Friendship = friendship
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventFriendshipCreated,
			AggregateType: enums.AggregateFriendship,
			AggregateID:   friendship.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"user_id_1": friendship.UserID1, "user_id_2": friendship.UserID2},
		}); err != nil {
			return err
		}
		s.notifier.Notify(ctx, tx, notifications.Input{
			UserID:  req.SenderID,
			Type:    enums.NotificationFriendAccepted,
			Title:   "Friend request accepted",
			Message: fmt.Sprintf("%s accepted your friend request", receiverName),
			Link:    "/friends",
		})
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "respond to friend request")
	}
	return result, nil
}

func (s *service) ListFriends(ctx context.Context, userID uuid.UUID) ([]FriendView, error) {
	rows, err := s.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list friends")
	}
	if rows == nil {
		rows = []FriendView{}
	}
	return rows, nil
}

func (s *service) ListPending(ctx context.Context, userID uuid.UUID) (*PendingRequests, error) {
	rows, err := s.repo.ListPending(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list friend requests")
	}
	out := &PendingRequests{Incoming: []models.FriendRequest{}, Outgoing: []models.FriendRequest{}}
	for _, row := range rows {
		if row.ReceiverID == userID {
			out.Incoming = append(out.Incoming, row)
		} else {
			out.Outgoing = append(out.Outgoing, row)
		}
	}
	return out, nil
}

func (s *service) Unfriend(ctx context.Context, userID, otherID uuid.UUID) error {
	if userID == otherID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot unfriend yourself")
	}
	deleted, err := s.repo.DeleteFriendship(ctx, userID, otherID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete friendship")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "friendship not found")
	}
	return nil
}
