package trips

import (
	"context"
	"testing"
	"time"

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
	"github.com/withmetravel/withme-backend/pkg/pagination"
	"github.com/withmetravel/withme-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	resolver, err := permissions.NewResolver(permissions.NewRepository(conn), nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Checker: resolver,
		Tx:      db.FromGorm(conn),
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc, conn
}

func TestCreateAddsCreatorAsAdmin(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	creator := uuid.New()

	trip, err := svc.Create(ctx, creator, CreateInput{Name: "  Summer in Lisbon! "})
	require.NoError(t, err)
	assert.Equal(t, "Summer in Lisbon!", trip.Name)
	assert.Regexp(t, `^summer-in-lisbon-[0-9a-f]{6}$`, trip.Slug)

	var member models.TripMember
	require.NoError(t, conn.Where("trip_id = ? AND user_id = ?", trip.ID, creator).Take(&member).Error)
	assert.Equal(t, enums.TripRoleAdmin, member.Role)
	assert.Equal(t, enums.MemberStatusActive, member.Status)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventTripCreated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCreateRejectsInvertedDates(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{Name: "x", StartDate: &start, EndDate: &end})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetRespectsVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	creator := uuid.New()

	private, err := svc.Create(ctx, creator, CreateInput{Name: "Private"})
	require.NoError(t, err)
	public, err := svc.Create(ctx, creator, CreateInput{Name: "Public", IsPublic: true})
	require.NoError(t, err)

	_, err = svc.Get(ctx, private.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.Get(ctx, private.ID, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	view, err := svc.Get(ctx, public.ID, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, view.Permissions.CanView)
	assert.False(t, view.Permissions.CanEdit)

	view, err = svc.Get(ctx, private.ID, creator)
	require.NoError(t, err)
	assert.True(t, view.Permissions.IsCreator)
}

func TestListForUserIncludesMemberships(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	own, err := svc.Create(ctx, alice, CreateInput{Name: "Own"})
	require.NoError(t, err)
	shared, err := svc.Create(ctx, bob, CreateInput{Name: "Shared"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, CreateInput{Name: "Hidden"})
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.TripMember{TripID: shared.ID, UserID: alice, Role: enums.TripRoleViewer, Status: enums.MemberStatusActive}).Error)

	page, err := svc.ListForUser(ctx, alice, pagination.Params{Limit: 10})
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, trip := range page.Items {
		ids = append(ids, trip.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{own.ID, shared.ID}, ids)
}

func TestUpdateVisibilityNeedsManage(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	creator, editor := uuid.New(), uuid.New()
	trip, err := svc.Create(ctx, creator, CreateInput{Name: "Trip"})
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.TripMember{TripID: trip.ID, UserID: editor, Role: enums.TripRoleEditor, Status: enums.MemberStatusActive}).Error)

	public := true
	_, err = svc.Update(ctx, trip.ID, editor, UpdateInput{IsPublic: &public})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	name := "Renamed"
	updated, err := svc.Update(ctx, trip.ID, editor, UpdateInput{Name: &name, Description: types.Some("beach days")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	require.NotNil(t, updated.Description)

	updated, err = svc.Update(ctx, trip.ID, creator, UpdateInput{IsPublic: &public, Description: types.Null[string]()})
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)
	assert.Nil(t, updated.Description)
}

func TestDeleteOnlyCreatorOrSystemAdmin(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	creator, admin := uuid.New(), uuid.New()
	trip, err := svc.Create(ctx, creator, CreateInput{Name: "Trip"})
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.TripMember{TripID: trip.ID, UserID: admin, Role: enums.TripRoleAdmin, Status: enums.MemberStatusActive}).Error)

	err = svc.Delete(ctx, trip.ID, Actor{UserID: admin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "trip admins cannot delete")

	require.NoError(t, svc.Delete(ctx, trip.ID, Actor{UserID: uuid.New(), IsSystemAdmin: true}))
	_, err = svc.Get(ctx, trip.ID, creator)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBuildSlug(t *testing.T) {
	assert.Regexp(t, `^trip-[0-9a-f]{6}$`, buildSlug("¡¡!!"))
	assert.Regexp(t, `^a-b-[0-9a-f]{6}$`, buildSlug("A -- B"))
}
