package trips

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
	"github.com/withmetravel/withme-backend/pkg/pagination"
	"github.com/withmetravel/withme-backend/pkg/types"
)

const slugAttempts = 3

// Service exposes trip lifecycle operations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Trip, error)
	Get(ctx context.Context, tripID, userID uuid.UUID) (*TripView, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[models.Trip], error)
	Update(ctx context.Context, tripID, userID uuid.UUID, input UpdateInput) (*models.Trip, error)
	Delete(ctx context.Context, tripID uuid.UUID, actor Actor) error
}

// Actor is the caller of a destructive operation.
type Actor struct {
	UserID        uuid.UUID
	IsSystemAdmin bool
}

type CreateInput struct {
	Name          string     `json:"name" validate:"required,min=1,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=2000"`
	DestinationID *uuid.UUID `json:"destination_id"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	IsPublic      bool       `json:"is_public"`
}

type UpdateInput struct {
	Name          *string                   `json:"name" validate:"omitempty,min=1,max=200"`
	Description   types.Nullable[string]    `json:"description"`
	DestinationID types.Nullable[uuid.UUID] `json:"destination_id"`
	StartDate     types.Nullable[time.Time] `json:"start_date"`
	EndDate       types.Nullable[time.Time] `json:"end_date"`
	IsPublic      *bool                     `json:"is_public"`
}

// TripView pairs a trip with the caller's capabilities on it.
type TripView struct {
	Trip        models.Trip                 `json:"trip"`
	Permissions permissions.PermissionCheck `json:"permissions"`
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
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trips repository required")
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
	return &service{repo: params.Repo, checker: params.Checker, tx: params.Tx, outbox: params.Outbox}, nil
}

// Create stores the trip and makes the creator an active admin member in one transaction.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Trip, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	var created *models.Trip
	var lastErr error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		trip := &models.Trip{
			Name:          name,
			Description:   input.Description,
			DestinationID: input.DestinationID,
			StartDate:     input.StartDate,
			EndDate:       input.EndDate,
			CreatedBy:     userID,
			IsPublic:      input.IsPublic,
			Slug:          buildSlug(name),
		}
		lastErr = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Create(ctx, trip); err != nil {
				return err
			}
			now := time.Now().UTC()
			member := &models.TripMember{
				TripID:   trip.ID,
				UserID:   userID,
				Role:     enums.TripRoleAdmin,
				Status:   enums.MemberStatusActive,
				JoinedAt: &now,
			}
			if err := repo.CreateMember(ctx, member); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventTripCreated,
				AggregateType: enums.AggregateTrip,
				AggregateID:   trip.ID,
				Actor:         &outbox.ActorRef{UserID: userID, TripID: &trip.ID, Role: string(enums.TripRoleAdmin)},
				Data:          map[string]any{"name": trip.Name, "slug": trip.Slug, "is_public": trip.IsPublic},
			})
		})
		if lastErr == nil {
			created = trip
			break
		}
		if !db.IsUniqueViolation(lastErr, "") {
			break
		}
	}
	if lastErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create trip")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, tripID, userID uuid.UUID) (*TripView, error) {
	check, err := permissions.RequireView(ctx, s.checker, tripID, userID)
	if err != nil {
		return nil, err
	}
	trip, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return &TripView{Trip: *trip, Permissions: check}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[models.Trip], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trips")
	}
	page := pagination.BuildPage(rows, params.Limit, func(t models.Trip) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &page, nil
}

// Update needs canEdit; changing visibility additionally needs canManage.
func (s *service) Update(ctx context.Context, tripID, userID uuid.UUID, input UpdateInput) (*models.Trip, error) {
	check, err := permissions.RequireEdit(ctx, s.checker, tripID, userID)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, tripID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description.Set {
		updates["description"] = input.Description.Value
	}
	if input.DestinationID.Set {
		updates["destination_id"] = input.DestinationID.Value
	}
	start, end := current.StartDate, current.EndDate
	if input.StartDate.Set {
		start = input.StartDate.Value
		updates["start_date"] = start
	}
	if input.EndDate.Set {
		end = input.EndDate.Value
		updates["end_date"] = end
	}
	if err := validateDates(start, end); err != nil {
		return nil, err
	}
	if input.IsPublic != nil && *input.IsPublic != current.IsPublic {
		if !check.CanManage {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "changing trip visibility requires manage permission")
		}
		updates["is_public"] = *input.IsPublic
	}
	if len(updates) == 0 {
		return current, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, tripID, updates); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripUpdated,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actorRef(userID, tripID, check),
			Data:          updatedFields(updates),
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update trip")
	}
	return s.load(ctx, tripID)
}

// Delete is reserved to the creator, or to a system admin acting on any trip.
func (s *service) Delete(ctx context.Context, tripID uuid.UUID, actor Actor) error {
	var check permissions.PermissionCheck
	if actor.IsSystemAdmin {
		if _, err := s.load(ctx, tripID); err != nil {
			return err
		}
	} else {
		var err error
		if check, err = permissions.RequireDelete(ctx, s.checker, tripID, actor.UserID); err != nil {
			return err
		}
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, tripID); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTripDeleted,
			AggregateType: enums.AggregateTrip,
			AggregateID:   tripID,
			Actor:         actorRef(actor.UserID, tripID, check),
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete trip")
	}
	return nil
}

func (s *service) load(ctx context.Context, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.repo.FindByID(ctx, tripID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trip not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load trip")
	}
	return trip, nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end_date must not be before start_date")
	}
	return nil
}

func actorRef(userID, tripID uuid.UUID, check permissions.PermissionCheck) *outbox.ActorRef {
	ref := &outbox.ActorRef{UserID: userID, TripID: &tripID}
	if check.Role != nil {
		ref.Role = string(*check.Role)
	}
	return ref
}

func updatedFields(updates map[string]any) map[string]any {
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	return map[string]any{"fields": fields}
}
