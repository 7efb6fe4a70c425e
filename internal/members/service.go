package members

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

// Service manages trip memberships.
type Service interface {
	List(ctx context.Context, tripID, userID uuid.UUID) ([]MemberView, error)
	Invite(ctx context.Context, tripID, actorID uuid.UUID, input InviteInput) (*models.TripMember, error)
	AcceptInvite(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error)
	UpdateRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role enums.TripRole) (*models.TripMember, error)
	Remove(ctx context.Context, tripID, actorID, targetID uuid.UUID) error
	FixRoles(ctx context.Context) (int64, error)
}

type InviteInput struct {
	UserID uuid.UUID      `json:"user_id" validate:"required"`
	Role   enums.TripRole `json:"role"`
}

type ServiceParams struct {
	Repo     Repository
	Checker  permissions.Checker
	Tx       db.TxRunner
	Outbox   outbox.Emitter
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	checker  permissions.Checker
	tx       db.TxRunner
	outbox   outbox.Emitter
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "members repository required")
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
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notifier required")
	}
	return &service{
		repo:     params.Repo,
		checker:  params.Checker,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, tripID, userID uuid.UUID) ([]MemberView, error) {
	if _, err := permissions.RequireView(ctx, s.checker, tripID, userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	if rows == nil {
		rows = []MemberView{}
	}
	return rows, nil
}

// Invite adds a pending membership the invitee must accept. The role defaults to viewer.
func (s *service) Invite(ctx context.Context, tripID, actorID uuid.UUID, input InviteInput) (*models.TripMember, error) {
	check, err := permissions.Require(ctx, s.checker, tripID, actorID, permissions.CapAddMembers)
	if err != nil {
		return nil, err
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user_id is required")
	}
	role := input.Role
	if role == "" {
		role = enums.TripRoleViewer
	}
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}

	exists, err := s.repo.ProfileExists(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitee profile")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if _, err := s.repo.Find(ctx, tripID, input.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a member of this trip")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	tripName, err := s.repo.TripName(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}

	member := &models.TripMember{
		TripID:    tripID,
		UserID:    input.UserID,
		Role:      role,
		Status:    enums.MemberStatusPending,
		InvitedBy: &actorID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, member); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, memberEvent(enums.EventMemberAdded, actorID, tripID, check, member)); err != nil {
			return err
		}
		s.notifier.Notify(ctx, tx, notifications.Input{
			UserID:  member.UserID,
			Type:    enums.NotificationTripInvite,
			Title:   "Trip invitation",
			Message: fmt.Sprintf("You were invited to %q as %s", tripName, role),
			Link:    tripLink(tripID),
		})
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a member of this trip")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invite member")
	}
	return member, nil
}

func (s *service) AcceptInvite(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	member, err := s.find(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if member.Status == enums.MemberStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invitation already accepted")
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, member.ID, map[string]any{"status": enums.MemberStatusActive, "joined_at": now}); err != nil {
			return err
		}
		member.Status = enums.MemberStatusActive
		member.JoinedAt = &now
		role := member.Role
		return s.outbox.Emit(ctx, tx, memberEvent(enums.EventMemberAdded, userID, tripID, permissions.PermissionCheck{Role: &role}, member))
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invitation")
	}
	return member, nil
}

// UpdateRole needs canManage. The creator's own membership always stays admin.
func (s *service) UpdateRole(ctx context.Context, tripID, actorID, targetID uuid.UUID, role enums.TripRole) (*models.TripMember, error) {
	check, err := permissions.RequireManage(ctx, s.checker, tripID, actorID)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid role %q", role)
	}
	creator, err := s.repo.TripCreator(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	if targetID == creator && role != enums.TripRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "the trip creator cannot be demoted")
	}
	member, err := s.find(ctx, tripID, targetID)
	if err != nil {
		return nil, err
	}
	if member.Role == role {
		return member, nil
	}

	previous := member.Role
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, member.ID, map[string]any{"role": role}); err != nil {
			return err
		}
		member.Role = role
		event := memberEvent(enums.EventMemberRoleChanged, actorID, tripID, check, member)
		event.Data = map[string]any{"user_id": member.UserID, "previous_role": previous, "role": role}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}
		s.notifier.Notify(ctx, tx, notifications.Input{
			UserID:  member.UserID,
			Type:    enums.NotificationRoleChanged,
			Title:   "Your trip role changed",
			Message: fmt.Sprintf("Your role is now %s", role),
			Link:    tripLink(tripID),
		})
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update member role")
	}
	return member, nil
}

// Remove lets managers remove others and anyone leave. The creator cannot be removed.
func (s *service) Remove(ctx context.Context, tripID, actorID, targetID uuid.UUID) error {
	var check permissions.PermissionCheck
	var err error
	if actorID == targetID && actorID != uuid.Nil {
		check, err = s.checker.Check(ctx, tripID, actorID)
	} else {
		check, err = permissions.RequireManage(ctx, s.checker, tripID, actorID)
	}
	if err != nil {
		return err
	}

	creator, err := s.repo.TripCreator(ctx, tripID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	if targetID == creator {
		return pkgerrors.New(pkgerrors.CodeForbidden, "the trip creator cannot be removed")
	}
	member, err := s.find(ctx, tripID, targetID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, member.ID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, memberEvent(enums.EventMemberRemoved, actorID, tripID, check, member))
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove member")
	}
	return nil
}

// FixRoles rewrites every role outside the valid set to viewer. Running it twice fixes nothing the second time.
func (s *service) FixRoles(ctx context.Context) (int64, error) {
	fixed, err := s.repo.FixInvalidRoles(ctx, enums.ValidTripRoles(), enums.TripRoleViewer)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fix member roles")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "fixed", fixed), "members.roles_fixed")
	}
	return fixed, nil
}

func (s *service) find(ctx context.Context, tripID, userID uuid.UUID) (*models.TripMember, error) {
	member, err := s.repo.Find(ctx, tripID, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	return member, nil
}

func memberEvent(eventType enums.OutboxEventType, actorID, tripID uuid.UUID, check permissions.PermissionCheck, member *models.TripMember) outbox.DomainEvent {
	actor := &outbox.ActorRef{UserID: actorID, TripID: &tripID}
	if check.Role != nil {
		actor.Role = string(*check.Role)
	}
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTripMember,
		AggregateID:   member.ID,
		Actor:         actor,
		Data: map[string]any{
			"trip_id": tripID,
			"user_id": member.UserID,
			"role":    member.Role,
			"status":  member.Status,
		},
	}
}

func tripLink(tripID uuid.UUID) string {
	return "/trips/" + tripID.String()
}
