package itinerary

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
	"github.com/withmetravel/withme-backend/pkg/types"
)

// Service manages itinerary items and day sections for a trip.
type Service interface {
	List(ctx context.Context, tripID, userID uuid.UUID) (*Itinerary, error)
	CreateItem(ctx context.Context, tripID, userID uuid.UUID, input CreateItemInput) (*models.ItineraryItem, error)
	UpdateItem(ctx context.Context, tripID, itemID, userID uuid.UUID, input UpdateItemInput) (*models.ItineraryItem, error)
	DeleteItem(ctx context.Context, tripID, itemID, userID uuid.UUID) error
	CreateSection(ctx context.Context, tripID, userID uuid.UUID, input CreateSectionInput) (*models.ItinerarySection, error)
	ReorderItem(ctx context.Context, tripID, userID uuid.UUID, input ReorderItemInput) (*Itinerary, error)
	ReorderSections(ctx context.Context, tripID, userID uuid.UUID, input ReorderSectionsInput) ([]models.ItinerarySection, error)
}

type Itinerary struct {
	Sections []models.ItinerarySection `json:"sections"`
	Items    []models.ItineraryItem    `json:"items"`
}

type CreateItemInput struct {
	Title       string  `json:"title" validate:"required,max=300"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	DayNumber   *int    `json:"day_number" validate:"omitempty,min=1"`
}

type UpdateItemInput struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=300"`
	Description types.Nullable[string] `json:"description"`
	Location    types.Nullable[string] `json:"location"`
	StartTime   types.Nullable[string] `json:"start_time"`
	EndTime     types.Nullable[string] `json:"end_time"`
}

type CreateSectionInput struct {
	DayNumber int        `json:"day_number" validate:"required,min=1"`
	Title     *string    `json:"title"`
	Date      *time.Time `json:"date"`
}

// ReorderItemInput moves one item. A nil NewDayNumber moves it to the unscheduled bucket.
type ReorderItemInput struct {
	ItemID       uuid.UUID `json:"itemId"`
	NewDayNumber *int      `json:"newDayNumber"`
	NewPosition  int       `json:"newPosition"`
}

type ReorderSectionsInput struct {
	DayNumbers []int `json:"dayNumbers"`
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
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itinerary repository required")
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

func (s *service) List(ctx context.Context, tripID, userID uuid.UUID) (*Itinerary, error) {
	if _, err := permissions.RequireView(ctx, s.checker, tripID, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, tripID)
}

func (s *service) CreateItem(ctx context.Context, tripID, userID uuid.UUID, input CreateItemInput) (*models.ItineraryItem, error) {
	check, err := permissions.Require(ctx, s.checker, tripID, userID, permissions.CapContribute)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.DayNumber != nil && *input.DayNumber < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "day_number must be at least 1")
	}

	item := &models.ItineraryItem{
		TripID:      tripID,
		Title:       title,
		Description: input.Description,
		Location:    input.Location,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		DayNumber:   input.DayNumber,
		CreatedBy:   userID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		position, err := repo.NextPosition(ctx, tripID, input.DayNumber)
		if err != nil {
			return err
		}
		item.Position = position
		if input.DayNumber != nil {
			section, err := repo.FindSectionByDay(ctx, tripID, *input.DayNumber)
			if err == nil {
				item.SectionID = &section.ID
			} else if !db.IsNotFound(err) {
				return err
			}
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventItineraryChanged, tripID, item.ID, userID, check, map[string]any{"action": "created"})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create itinerary item")
	}
	return item, nil
}

func (s *service) UpdateItem(ctx context.Context, tripID, itemID, userID uuid.UUID, input UpdateItemInput) (*models.ItineraryItem, error) {
	item, check, err := s.authorizeItemWrite(ctx, tripID, itemID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be blank")
		}
		updates["title"] = title
	}
	for column, field := range map[string]types.Nullable[string]{
		"description": input.Description,
		"location":    input.Location,
		"start_time":  input.StartTime,
		"end_time":    input.EndTime,
	} {
		if field.Set {
			updates[column] = field.Value
		}
	}
	if len(updates) == 0 {
		return item, nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateItem(ctx, item.ID, updates); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventItineraryChanged, tripID, item.ID, userID, check, map[string]any{"action": "updated"})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update itinerary item")
	}
	return s.findItem(ctx, tripID, itemID)
}

func (s *service) DeleteItem(ctx context.Context, tripID, itemID, userID uuid.UUID) error {
	item, check, err := s.authorizeItemWrite(ctx, tripID, itemID, userID)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteItem(ctx, item.ID); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventItineraryChanged, tripID, item.ID, userID, check, map[string]any{"action": "deleted"})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete itinerary item")
	}
	return nil
}

func (s *service) CreateSection(ctx context.Context, tripID, userID uuid.UUID, input CreateSectionInput) (*models.ItinerarySection, error) {
	if _, err := permissions.RequireEdit(ctx, s.checker, tripID, userID); err != nil {
		return nil, err
	}
	if input.DayNumber < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "day_number must be at least 1")
	}
	if _, err := s.repo.FindSectionByDay(ctx, tripID, input.DayNumber); err == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "day %d already has a section", input.DayNumber)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load section")
	}

	section := &models.ItinerarySection{TripID: tripID, DayNumber: input.DayNumber, Title: input.Title, Date: input.Date}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		position, err := repo.NextSectionPosition(ctx, tripID)
		if err != nil {
			return err
		}
		section.Position = position
		return repo.CreateSection(ctx, section)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Newf(pkgerrors.CodeConflict, "day %d already has a section", input.DayNumber)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create section")
	}
	return section, nil
}

// ReorderItem is open to admins, editors, contributors and the creator.
func (s *service) ReorderItem(ctx context.Context, tripID, userID uuid.UUID, input ReorderItemInput) (*Itinerary, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "itemId is required")
	}
	if input.NewPosition < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "newPosition must be zero or greater")
	}
	if input.NewDayNumber != nil && *input.NewDayNumber < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "newDayNumber must be at least 1 or null")
	}
	check, err := permissions.Require(ctx, s.checker, tripID, userID, permissions.CapContribute)
	if err != nil {
		return nil, err
	}
	if _, err := s.findItem(ctx, tripID, input.ItemID); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).MoveItem(ctx, input.ItemID, input.NewDayNumber, input.NewPosition); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventItineraryReordered, tripID, input.ItemID, userID, check, map[string]any{
			"new_day_number": input.NewDayNumber,
			"new_position":   input.NewPosition,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder itinerary item")
	}
	return s.load(ctx, tripID)
}

func (s *service) ReorderSections(ctx context.Context, tripID, userID uuid.UUID, input ReorderSectionsInput) ([]models.ItinerarySection, error) {
	if len(input.DayNumbers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dayNumbers must not be empty")
	}
	seen := make(map[int]struct{}, len(input.DayNumbers))
	for _, day := range input.DayNumbers {
		if day < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "day numbers must be at least 1")
		}
		if _, dup := seen[day]; dup {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "day %d listed twice", day)
		}
		seen[day] = struct{}{}
	}
	check, err := permissions.RequireEdit(ctx, s.checker, tripID, userID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).ReorderSections(ctx, tripID, input.DayNumbers); err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventItineraryReordered, tripID, tripID, userID, check, map[string]any{"day_numbers": input.DayNumbers})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reorder sections")
	}
	sections, err := s.repo.ListSections(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sections")
	}
	return sections, nil
}

// authorizeItemWrite allows editors, and contributors on items they created.
func (s *service) authorizeItemWrite(ctx context.Context, tripID, itemID, userID uuid.UUID) (*models.ItineraryItem, permissions.PermissionCheck, error) {
	check, err := permissions.RequireView(ctx, s.checker, tripID, userID)
	if err != nil {
		return nil, check, err
	}
	item, err := s.findItem(ctx, tripID, itemID)
	if err != nil {
		return nil, check, err
	}
	if check.CanEdit || (check.CanContribute && item.CreatedBy == userID) {
		return item, check, nil
	}
	if userID == uuid.Nil {
		return nil, check, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil, check, pkgerrors.New(pkgerrors.CodeForbidden, "missing edit permission for this item")
}

func (s *service) findItem(ctx context.Context, tripID, itemID uuid.UUID) (*models.ItineraryItem, error) {
	item, err := s.repo.FindItem(ctx, tripID, itemID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "itinerary item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load itinerary item")
	}
	return item, nil
}

func (s *service) load(ctx context.Context, tripID uuid.UUID) (*Itinerary, error) {
	sections, err := s.repo.ListSections(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sections")
	}
	items, err := s.repo.ListItems(ctx, tripID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list itinerary items")
	}
	if sections == nil {
		sections = []models.ItinerarySection{}
	}
	if items == nil {
		items = []models.ItineraryItem{}
	}
	return &Itinerary{Sections: sections, Items: items}, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, tripID, aggregateID, userID uuid.UUID, check permissions.PermissionCheck, data map[string]any) error {
	actor := &outbox.ActorRef{UserID: userID, TripID: &tripID}
	if check.Role != nil {
		actor.Role = string(*check.Role)
	}
	data["trip_id"] = tripID
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateItineraryItem,
		AggregateID:   aggregateID,
		Actor:         actor,
		Data:          data,
	})
}
