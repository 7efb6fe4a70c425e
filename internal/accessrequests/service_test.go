package accessrequests

import (
	"context"
	"testing"
	"time"

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
	svc      *service
	resolver *permissions.Resolver
	conn     *gorm.DB
	owner    uuid.UUID
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

	owner := uuid.New()
	trip := models.Trip{Name: "Patagonia", CreatedBy: owner, Slug: "patagonia-1a2b3c"}
	require.NoError(t, conn.Create(&trip).Error)
	return fixture{svc: svc.(*service), resolver: resolver, conn: conn, owner: owner, trip: trip}
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.TripRoleViewer, req.RequestedRole)
	assert.Equal(t, enums.PermissionRequestPending, req.Status)

	_, err = f.svc.Create(ctx, f.trip.ID, user, CreateInput{RequestedRole: enums.TripRoleEditor})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.New(), uuid.New(), CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Create(ctx, f.trip.ID, uuid.New(), CreateInput{RequestedRole: "owner"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	member := uuid.New()
	require.NoError(t, f.conn.Create(&models.TripMember{TripID: f.trip.ID, UserID: member, Role: enums.TripRoleViewer, Status: enums.MemberStatusActive}).Error)
	_, err = f.svc.Create(ctx, f.trip.ID, member, CreateInput{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestApproveGrantsRequestedRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{RequestedRole: enums.TripRoleContributor})
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, f.trip.ID, f.owner)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = f.svc.Respond(ctx, f.trip.ID, req.ID, user, enums.DecisionApprove)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	resolved, err := f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, enums.PermissionRequestApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, f.owner, *resolved.ResolvedBy)

	check, err := f.resolver.Check(ctx, f.trip.ID, user)
	require.NoError(t, err)
	require.NotNil(t, check.Role)
	assert.Equal(t, enums.TripRoleContributor, *check.Role)
	assert.False(t, check.CanManage)

	_, err = f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionDeny)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var notes []models.Notification
	require.NoError(t, f.conn.Where("user_id = ?", user).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, enums.NotificationAccessApproved, notes[0].Type)
}

func TestApproveUpgradesPendingInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	require.NoError(t, f.conn.Create(&models.TripMember{TripID: f.trip.ID, UserID: user, Role: enums.TripRoleViewer, Status: enums.MemberStatusPending}).Error)

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{RequestedRole: enums.TripRoleEditor})
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionApprove)
	require.NoError(t, err)

	var member models.TripMember
	require.NoError(t, f.conn.Where("trip_id = ? AND user_id = ?", f.trip.ID, user).Take(&member).Error)
	assert.Equal(t, enums.TripRoleEditor, member.Role)
	assert.Equal(t, enums.MemberStatusActive, member.Status)
}

func TestDeniedRequestIsResubmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{})
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionDeny)
	require.NoError(t, err)

	msg := "  please  "
	again, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{RequestedRole: enums.TripRoleEditor, Message: &msg})
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID)
	assert.Equal(t, enums.PermissionRequestPending, again.Status)
	assert.Equal(t, enums.TripRoleEditor, again.RequestedRole)
	require.NotNil(t, again.Message)
	assert.Equal(t, "please", *again.Message)

	var count int64
	require.NoError(t, f.conn.Model(&models.PermissionRequest{}).Where("trip_id = ? AND user_id = ?", f.trip.ID, user).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := models.PermissionRequest{TripID: f.trip.ID, UserID: uuid.New(), RequestedRole: enums.TripRoleViewer, Status: enums.PermissionRequestPending, CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	require.NoError(t, f.conn.Create(&old).Error)
	_, err := f.svc.Create(ctx, f.trip.ID, uuid.New(), CreateInput{})
	require.NoError(t, err)

	expired, err := f.svc.ExpireStale(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
}

func TestResubmittedRequestSurvivesExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{})
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.PermissionRequest{}).Where("id = ?", req.ID).Update("created_at", time.Now().Add(-30*24*time.Hour)).Error)
	_, err = f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionDeny)
	require.NoError(t, err)

	again, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), again.CreatedAt, time.Minute)

	expired, err := f.svc.ExpireStale(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), expired)

	var stored models.PermissionRequest
	require.NoError(t, f.conn.Where("id = ?", req.ID).Take(&stored).Error)
	assert.Equal(t, enums.PermissionRequestPending, stored.Status)
}

func TestApproveKeepsHigherActiveRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	req, err := f.svc.Create(ctx, f.trip.ID, user, CreateInput{})
	require.NoError(t, err)
	require.NoError(t, f.conn.Create(&models.TripMember{TripID: f.trip.ID, UserID: user, Role: enums.TripRoleEditor, Status: enums.MemberStatusActive}).Error)

	resolved, err := f.svc.Respond(ctx, f.trip.ID, req.ID, f.owner, enums.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, enums.PermissionRequestApproved, resolved.Status)

	var member models.TripMember
	require.NoError(t, f.conn.Where("trip_id = ? AND user_id = ?", f.trip.ID, user).Take(&member).Error)
	assert.Equal(t, enums.TripRoleEditor, member.Role)
	assert.Equal(t, enums.MemberStatusActive, member.Status)

	var notes []models.Notification
	require.NoError(t, f.conn.Where("user_id = ?", user).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, string(enums.TripRoleEditor))
}
