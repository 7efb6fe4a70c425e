package members

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/dbtest"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

type fixture struct {
	svc      Service
	resolver *permissions.Resolver
	conn     *gorm.DB
	creator  uuid.UUID
	trip     models.Trip
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	resolver, err := permissions.NewResolver(permissions.NewRepository(conn), nil)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Checker:  resolver,
		Tx:       db.FromGorm(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: notifications.NewDispatcher(notifications.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	creator := seedProfile(t, conn)
	trip := models.Trip{Name: "Kyoto", CreatedBy: creator, Slug: "kyoto-abc123"}
	require.NoError(t, conn.Create(&trip).Error)
	require.NoError(t, conn.Create(&models.TripMember{TripID: trip.ID, UserID: creator, Role: enums.TripRoleAdmin, Status: enums.MemberStatusActive}).Error)
	return fixture{svc: svc, resolver: resolver, conn: conn, creator: creator, trip: trip}
}

func seedProfile(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, conn.Create(&models.Profile{ID: id, Email: id.String() + "@example.com"}).Error)
	return id
}

func TestContributorInviteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := seedProfile(t, f.conn)

	check, err := f.resolver.Check(ctx, f.trip.ID, guest)
	require.NoError(t, err)
	assert.False(t, check.CanView)
	assert.False(t, check.CanEdit)
	assert.False(t, check.CanManage)
	assert.False(t, check.CanAddMembers)
	assert.False(t, check.CanDeleteTrip)
	assert.False(t, check.IsCreator)
	assert.Nil(t, check.Role)

	invited, err := f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: guest, Role: enums.TripRoleContributor})
	require.NoError(t, err)
	assert.Equal(t, enums.MemberStatusPending, invited.Status)

	var notes []models.Notification
	require.NoError(t, f.conn.Where("user_id = ?", guest).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, enums.NotificationTripInvite, notes[0].Type)

	_, err = f.svc.AcceptInvite(ctx, f.trip.ID, guest)
	require.NoError(t, err)

	check, err = f.resolver.Check(ctx, f.trip.ID, guest)
	require.NoError(t, err)
	assert.True(t, check.CanView)
	assert.False(t, check.CanEdit)
	require.NotNil(t, check.Role)
	assert.Equal(t, enums.TripRoleContributor, *check.Role)

	_, err = f.svc.AcceptInvite(ctx, f.trip.ID, guest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestInviteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := seedProfile(t, f.conn)

	member, err := f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: guest})
	require.NoError(t, err)
	assert.Equal(t, enums.TripRoleViewer, member.Role)

	_, err = f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: guest})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: seedProfile(t, f.conn), Role: "owner"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AcceptInvite(ctx, f.trip.ID, guest)
	require.NoError(t, err)
	_, err = f.svc.Invite(ctx, f.trip.ID, guest, InviteInput{UserID: seedProfile(t, f.conn)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "viewers cannot add members")
}

func TestUpdateRoleAndCreatorProtection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := seedProfile(t, f.conn)
	_, err := f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: guest})
	require.NoError(t, err)
	_, err = f.svc.AcceptInvite(ctx, f.trip.ID, guest)
	require.NoError(t, err)

	updated, err := f.svc.UpdateRole(ctx, f.trip.ID, f.creator, guest, enums.TripRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, enums.TripRoleAdmin, updated.Role)

	_, err = f.svc.UpdateRole(ctx, f.trip.ID, guest, f.creator, enums.TripRoleViewer)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = f.svc.Remove(ctx, f.trip.ID, guest, f.creator)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRemoveSelfLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := seedProfile(t, f.conn)
	_, err := f.svc.Invite(ctx, f.trip.ID, f.creator, InviteInput{UserID: guest})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, f.trip.ID, guest, guest))
	rows, err := f.svc.List(ctx, f.trip.ID, f.creator)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, f.creator, rows[0].UserID)
}

func TestFixRolesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, raw := range []string{"owner", "ADMIN", "superuser"} {
		require.NoError(t, f.conn.Create(&models.TripMember{TripID: f.trip.ID, UserID: seedProfile(t, f.conn), Role: enums.TripRole(raw), Status: enums.MemberStatusActive}).Error)
	}

	fixed, err := f.svc.FixRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fixed)

	fixed, err = f.svc.FixRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fixed)

	var roles []string
	require.NoError(t, f.conn.Model(&models.TripMember{}).Where("trip_id = ?", f.trip.ID).Pluck("role", &roles).Error)
	for _, role := range roles {
		assert.True(t, enums.TripRole(role).IsValid(), role)
	}
}
