package accessrequests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

// Service runs the trip access-request workflow: pending, then approved or denied.
type Service interface {
	Create(ctx context.Context, tripID, userID uuid.UUID, input CreateInput) (*models.PermissionRequest, error)
	ListPending(ctx context.Context, tripID, actorID uuid.UUID) ([]models.PermissionRequest, error)
	Respond(ctx context.Context, tripID, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error)
	ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type CreateInput struct {
	RequestedRole enums.TripRole `json:"requested_role"`
	Message       *string        `json:"message" validate:"omitempty,max=1000"`
}

type ServiceParams struct {
	Repo     Repository
	Checker  permissions.Checker
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
}

type service struct {
	repo     Repository
	checker  permissions.Checker
	tx       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access request repository required")
	case params.Checker == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "permission checker required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox emitter required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		checker:  params.Checker,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		now:      time.Now,
	}, nil
}

// Create files a request. A denied request is resubmitted in place rather than duplicated.
func (s *service) Create(ctx context.Context, tripID, userID uuid.UUID, input CreateInput) (*models.PermissionRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	role := input.RequestedRole
	if role == "" {
		role = enums.TripRoleViewer
	}
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid requested role %q", role)
	}
	message := trimmed(input.Message)

	exists, err := s.repo.TripExists(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
	}

	member, err := s.repo.FindMembership(ctx, tripID, userID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	if member != nil && member.Status == enums.MemberStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already a member of this trip")
	}

	existing, err := s.repo.FindLatest(ctx, tripID, userID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load access request")
	}
	if existing != nil && existing.Status == enums.PermissionRequestPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already pending")
	}

	var result *models.PermissionRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil && existing.Status == enums.PermissionRequestDenied {
			// Expiry keys on created_at, so a resubmission restarts the clock.
			resubmittedAt := s.now().UTC()
			err := repo.Update(ctx, existing.ID, map[string]any{
				"status":         enums.PermissionRequestPending,
				"requested_role": role,
				"message":        message,
				"resolved_by":    nil,
				"resolved_at":    nil,
				"created_at":     resubmittedAt,
			})
			if err != nil {
				return err
			}
			existing.CreatedAt = resubmittedAt
			existing.Status = enums.PermissionRequestPending
			existing.RequestedRole = role
			existing.Message = message
			existing.ResolvedBy = nil
			existing.ResolvedAt = nil
			result = existing
		} else {
			req := &models.PermissionRequest{
				TripID:        tripID,
				UserID:        userID,
				RequestedRole: role,
				Status:        enums.PermissionRequestPending,
				Message:       message,
			}
			if err := repo.Create(ctx, req); err != nil {
				return err
			}
			result = req
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccessRequested,
			AggregateType: enums.AggregatePermissionRequest,
			AggregateID:   result.ID,
			Actor:         &outbox.ActorRef{UserID: userID, TripID: &tripID},
			Data:          map[string]any{"trip_id": tripID, "requested_role": role},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "request already pending")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create access request")
	}
	return result, nil
}

func (s *service) ListPending(ctx context.Context, tripID, actorID uuid.UUID) ([]models.PermissionRequest, error) {
	if _, err := permissions.RequireManage(ctx, s.checker, tripID, actorID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPending(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list access requests")
	}
	if rows == nil {
		rows = []models.PermissionRequest{}
	}
	return rows, nil
}

// Respond resolves a pending request. Approval grants the requested role as an
// active membership; a caller who is already an active member never loses rank.
func (s *service) Respond(ctx context.Context, tripID, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error) {
	check, err := permissions.RequireManage(ctx, s.checker, tripID, actorID)
	if err != nil {
		return nil, err
	}
	if decision != enums.DecisionApprove && decision != enums.DecisionDeny {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be approve or deny")
	}
	tripName, err := s.repo.TripName(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}

	var result *models.PermissionRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := repo.FindByIDForUpdate(ctx, tripID, requestID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "access request not found")
			}
			return err
		}
		if req.Status != enums.PermissionRequestPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "access request already %s", req.Status)
		}

		now := s.now().UTC()
		status := enums.PermissionRequestDenied
		role := req.RequestedRole
		if decision.Positive() {
			status = enums.PermissionRequestApproved
			current, err := repo.FindMembership(ctx, tripID, req.UserID)
			if err != nil && !db.IsNotFound(err) {
				return err
			}
			if current != nil && current.Status == enums.MemberStatusActive {
				role = enums.HigherTripRole(current.Role, role)
			}
			member := &models.TripMember{
				TripID:    tripID,
				UserID:    req.UserID,
				Role:      role,
				Status:    enums.MemberStatusActive,
				InvitedBy: &actorID,
				JoinedAt:  &now,
			}
			if err := repo.UpsertMember(ctx, member); err != nil {
				return err
			}
		}
		if err := repo.Update(ctx, req.ID, map[string]any{"status": status, "resolved_by": actorID, "resolved_at": now}); err != nil {
			return err
		}
		req.Status = status
		req.ResolvedBy = &actorID
		req.ResolvedAt = &now
		result = req

		actor := &outbox.ActorRef{UserID: actorID, TripID: &tripID}
		if check.Role != nil {
			actor.Role = string(*check.Role)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccessRequestResolved,
			AggregateType: enums.AggregatePermissionRequest,
			AggregateID:   req.ID,
			Actor:         actor,
			Data:          map[string]any{"trip_id": tripID, "user_id": req.UserID, "status": status, "role": role},
		}); err != nil {
			return err
		}

		note := notifications.Input{
			UserID:  req.UserID,
			Type:    enums.NotificationAccessDenied,
			Title:   "Access request denied",
			Message: fmt.Sprintf("Your request to join %q was denied", tripName),
		}
		if status == enums.PermissionRequestApproved {
			note.Type = enums.NotificationAccessApproved
			note.Title = "Access request approved"
			note.Message = fmt.Sprintf("You can now access %q as %s", tripName, role)
			note.Link = "/trips/" + tripID.String()
		}
		s.notifier.Notify(ctx, tx, note)
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "respond to access request")
	}
	return result, nil
}

// ExpireStale denies requests that stayed pending longer than olderThan. They can be resubmitted.
func (s *service) ExpireStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.now().UTC()
	count, err := s.repo.DenyPendingBefore(ctx, now.Add(-olderThan), now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire access requests")
	}
	return count, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
