package friends

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/pkg/db"
	"github.com/withmetravel/withme-backend/pkg/db/dbtest"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.FromGorm(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Notifier: notifications.NewDispatcher(notifications.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedProfile(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, conn.Create(&models.Profile{ID: id, Email: id.String() + "@example.com", Name: &name}).Error)
	return id
}

func TestSendRequestRejectsDuplicatesInEitherDirection(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	a, b := seedProfile(t, conn, "Ana"), seedProfile(t, conn, "Ben")

	_, err := svc.SendRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, a, b)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.SendRequest(ctx, b, a)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSendRequestValidation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	a := seedProfile(t, conn, "Ana")

	_, err := svc.SendRequest(ctx, a, a)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.SendRequest(ctx, a, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAcceptCreatesCanonicalFriendship(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	a, b := seedProfile(t, conn, "Ana"), seedProfile(t, conn, "Ben")

	req, err := svc.SendRequest(ctx, a, b)
	require.NoError(t, err)

	_, err = svc.Respond(ctx, req.ID, a, enums.DecisionAccept)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "sender cannot accept")

	result, err := svc.Respond(ctx, req.ID, b, enums.DecisionAccept)
	require.NoError(t, err)
	require.NotNil(t, result.Friendship)
	assert.Equal(t, enums.FriendRequestAccepted, result.Request.Status)
	assert.Less(t, result.Friendship.UserID1.String(), result.Friendship.UserID2.String())

	_, err = svc.Respond(ctx, req.ID, b, enums.DecisionDecline)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	friendsOfA, err := svc.ListFriends(ctx, a)
	require.NoError(t, err)
	require.Len(t, friendsOfA, 1)
	assert.Equal(t, b, friendsOfA[0].UserID)

	_, err = svc.SendRequest(ctx, b, a)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "already friends")

	var notes []models.Notification
	require.NoError(t, conn.Where("user_id = ? AND type = ?", a, enums.NotificationFriendAccepted).Find(&notes).Error)
	assert.Len(t, notes, 1)
}

func TestDeclineAllowsNewRequest(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	a, b := seedProfile(t, conn, "Ana"), seedProfile(t, conn, "Ben")

	req, err := svc.SendRequest(ctx, a, b)
	require.NoError(t, err)
	result, err := svc.Respond(ctx, req.ID, b, enums.DecisionDecline)
	require.NoError(t, err)
	assert.Nil(t, result.Friendship)

	_, err = svc.SendRequest(ctx, b, a)
	assert.NoError(t, err)

	pending, err := svc.ListPending(ctx, a)
	require.NoError(t, err)
	assert.Len(t, pending.Incoming, 1)
	assert.Empty(t, pending.Outgoing)
}

func TestRespondUnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Respond(context.Background(), uuid.New(), uuid.New(), enums.DecisionAccept)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUnfriend(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	a, b := seedProfile(t, conn, "Ana"), seedProfile(t, conn, "Ben")
	req, err := svc.SendRequest(ctx, a, b)
	require.NoError(t, err)
	_, err = svc.Respond(ctx, req.ID, b, enums.DecisionAccept)
	require.NoError(t, err)

	require.NoError(t, svc.Unfriend(ctx, b, a))
	err = svc.Unfriend(ctx, b, a)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCanonicalPair(t *testing.T) {
	low := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	high := uuid.MustParse("ffffffff-0000-0000-0000-000000000000")
	first, second := canonicalPair(high, low)
	assert.Equal(t, low, first)
	assert.Equal(t, high, second)
}
