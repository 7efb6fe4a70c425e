package itinerary

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/dbtest"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

type moveCall struct {
	itemID   uuid.UUID
	day      *int
	position int
}

// recordingRepo stands in for the postgres reorder functions, which sqlite lacks.
type recordingRepo struct {
	Repository
	moves    *[]moveCall
	sections *[][]int
}

func (r recordingRepo) WithTx(tx *gorm.DB) Repository {
	return recordingRepo{Repository: r.Repository.WithTx(tx), moves: r.moves, sections: r.sections}
}

func (r recordingRepo) MoveItem(ctx context.Context, itemID uuid.UUID, day *int, position int) error {
	*r.moves = append(*r.moves, moveCall{itemID: itemID, day: day, position: position})
	return r.Repository.UpdateItem(ctx, itemID, map[string]any{"day_number": day, "position": position})
}

func (r recordingRepo) ReorderSections(ctx context.Context, tripID uuid.UUID, days []int) error {
	*r.sections = append(*r.sections, days)
	return nil
}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	trip     models.Trip
	creator  uuid.UUID
	moves    []moveCall
	sections [][]int
}

func newFixture(t *testing.T, public bool) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	resolver, err := permissions.NewResolver(permissions.NewRepository(conn), nil)
	require.NoError(t, err)

	f := &fixture{conn: conn, creator: uuid.New()}
	repo := recordingRepo{Repository: NewRepository(conn), moves: &f.moves, sections: &f.sections}
	f.svc, err = NewService(ServiceParams{
		Repo:    repo,
		Checker: resolver,
		Tx:      db.FromGorm(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	f.trip = models.Trip{Name: "Lisbon", Slug: "lisbon-00aa11", CreatedBy: f.creator, IsPublic: public}
	require.NoError(t, conn.Create(&f.trip).Error)
	return f
}

func (f *fixture) addMember(t *testing.T, role enums.TripRole) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.conn.Create(&models.TripMember{TripID: f.trip.ID, UserID: id, Role: role, Status: enums.MemberStatusActive}).Error)
	return id
}

func day(n int) *int { return &n }

func TestCreateItem_AppendsPositionsPerDay(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	contributor := f.addMember(t, enums.TripRoleContributor)

	section, err := f.svc.CreateSection(ctx, f.trip.ID, f.creator, CreateSectionInput{DayNumber: 1})
	require.NoError(t, err)

	first, err := f.svc.CreateItem(ctx, f.trip.ID, contributor, CreateItemInput{Title: "Tram 28", DayNumber: day(1)})
	require.NoError(t, err)
	second, err := f.svc.CreateItem(ctx, f.trip.ID, contributor, CreateItemInput{Title: "Pasteis", DayNumber: day(1)})
	require.NoError(t, err)
	loose, err := f.svc.CreateItem(ctx, f.trip.ID, f.creator, CreateItemInput{Title: "Sintra?"})
	require.NoError(t, err)

	assert.Equal(t, 0, first.Position)
	assert.Equal(t, 1, second.Position)
	assert.Equal(t, 0, loose.Position)
	require.NotNil(t, first.SectionID)
	assert.Equal(t, section.ID, *first.SectionID)
	assert.Nil(t, loose.SectionID)

	view, err := f.svc.List(ctx, f.trip.ID, contributor)
	require.NoError(t, err)
	require.Len(t, view.Items, 3)
	assert.Equal(t, loose.ID, view.Items[2].ID, "unscheduled items sort last")
	assert.Len(t, view.Sections, 1)
}

func TestCreateItem_ViewerForbidden(t *testing.T) {
	f := newFixture(t, false)
	viewer := f.addMember(t, enums.TripRoleViewer)

	_, err := f.svc.CreateItem(context.Background(), f.trip.ID, viewer, CreateItemInput{Title: "Nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.CreateItem(context.Background(), f.trip.ID, uuid.Nil, CreateItemInput{Title: "Nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestList_PublicTripReadableAnonymously(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.CreateItem(context.Background(), f.trip.ID, f.creator, CreateItemInput{Title: "Alfama"})
	require.NoError(t, err)

	view, err := f.svc.List(context.Background(), f.trip.ID, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
}

func TestUpdateItem_ContributorLimitedToOwnItems(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	alice := f.addMember(t, enums.TripRoleContributor)
	bob := f.addMember(t, enums.TripRoleContributor)
	editor := f.addMember(t, enums.TripRoleEditor)

	item, err := f.svc.CreateItem(ctx, f.trip.ID, alice, CreateItemInput{Title: "Fado night"})
	require.NoError(t, err)

	title := "Fado at Tasca"
	updated, err := f.svc.UpdateItem(ctx, f.trip.ID, item.ID, alice, UpdateItemInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = f.svc.UpdateItem(ctx, f.trip.ID, item.ID, bob, UpdateItemInput{Title: &title})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, f.svc.DeleteItem(ctx, f.trip.ID, item.ID, editor))
	err = f.svc.DeleteItem(ctx, f.trip.ID, item.ID, editor)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateSection_DuplicateDayConflicts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.CreateSection(ctx, f.trip.ID, f.creator, CreateSectionInput{DayNumber: 2})
	require.NoError(t, err)
	_, err = f.svc.CreateSection(ctx, f.trip.ID, f.creator, CreateSectionInput{DayNumber: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	contributor := f.addMember(t, enums.TripRoleContributor)
	_, err = f.svc.CreateSection(ctx, f.trip.ID, contributor, CreateSectionInput{DayNumber: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestReorderItem_Validation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	cases := []struct {
		name  string
		input ReorderItemInput
	}{
		{"missing item", ReorderItemInput{NewPosition: 0}},
		{"negative position", ReorderItemInput{ItemID: uuid.New(), NewPosition: -1}},
		{"zero day", ReorderItemInput{ItemID: uuid.New(), NewDayNumber: day(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ReorderItem(ctx, f.trip.ID, f.creator, tc.input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.moves)
}

func TestReorderItem_MovesAndEmits(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	contributor := f.addMember(t, enums.TripRoleContributor)
	viewer := f.addMember(t, enums.TripRoleViewer)

	item, err := f.svc.CreateItem(ctx, f.trip.ID, contributor, CreateItemInput{Title: "Belem"})
	require.NoError(t, err)

	_, err = f.svc.ReorderItem(ctx, f.trip.ID, viewer, ReorderItemInput{ItemID: item.ID, NewDayNumber: day(2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	view, err := f.svc.ReorderItem(ctx, f.trip.ID, contributor, ReorderItemInput{ItemID: item.ID, NewDayNumber: day(2), NewPosition: 0})
	require.NoError(t, err)
	require.Len(t, f.moves, 1)
	assert.Equal(t, 2, *f.moves[0].day)
	require.Len(t, view.Items, 1)
	require.NotNil(t, view.Items[0].DayNumber)
	assert.Equal(t, 2, *view.Items[0].DayNumber)

	var events int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventItineraryReordered).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestReorderItem_ItemFromOtherTrip(t *testing.T) {
	f := newFixture(t, false)
	other := models.Trip{Name: "Porto", Slug: "porto-00bb22", CreatedBy: f.creator}
	require.NoError(t, f.conn.Create(&other).Error)
	foreign := models.ItineraryItem{TripID: other.ID, Title: "Ribeira", CreatedBy: f.creator}
	require.NoError(t, f.conn.Create(&foreign).Error)

	_, err := f.svc.ReorderItem(context.Background(), f.trip.ID, f.creator, ReorderItemInput{ItemID: foreign.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.moves)
}

func TestReorderSections(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	contributor := f.addMember(t, enums.TripRoleContributor)

	_, err := f.svc.ReorderSections(ctx, f.trip.ID, f.creator, ReorderSectionsInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.ReorderSections(ctx, f.trip.ID, f.creator, ReorderSectionsInput{DayNumbers: []int{1, 2, 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = f.svc.ReorderSections(ctx, f.trip.ID, contributor, ReorderSectionsInput{DayNumbers: []int{2, 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.ReorderSections(ctx, f.trip.ID, f.creator, ReorderSectionsInput{DayNumbers: []int{2, 1}})
	require.NoError(t, err)
	require.Len(t, f.sections, 1)
	assert.Equal(t, []int{2, 1}, f.sections[0])
}
