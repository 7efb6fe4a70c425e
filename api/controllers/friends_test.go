package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/internal/accessrequests"
	"github.com/withmetravel/withme-backend/internal/friends"
	"github.com/withmetravel/withme-backend/pkg/db/models"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
)

type stubFriendsService struct {
	friends.Service
	sendFn    func(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	respondFn func(ctx context.Context, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*friends.RespondResult, error)
}

func (s *stubFriendsService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	return s.sendFn(ctx, senderID, receiverID)
}

func (s *stubFriendsService) Respond(ctx context.Context, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*friends.RespondResult, error) {
	return s.respondFn(ctx, requestID, actorID, decision)
}

type stubAccessService struct {
	accessrequests.Service
	createFn  func(ctx context.Context, tripID, userID uuid.UUID, input accessrequests.CreateInput) (*models.PermissionRequest, error)
	respondFn func(ctx context.Context, tripID, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error)
}

func (s *stubAccessService) Create(ctx context.Context, tripID, userID uuid.UUID, input accessrequests.CreateInput) (*models.PermissionRequest, error) {
	return s.createFn(ctx, tripID, userID, input)
}

func (s *stubAccessService) Respond(ctx context.Context, tripID, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error) {
	return s.respondFn(ctx, tripID, requestID, actorID, decision)
}

func TestSendFriendRequestWrapsSuccess(t *testing.T) {
	sender := uuid.New()
	receiver := uuid.New()
	svc := &stubFriendsService{sendFn: func(ctx context.Context, s, r uuid.UUID) (*models.FriendRequest, error) {
		if s != sender || r != receiver {
			t.Fatalf("unexpected pair %s -> %s", s, r)
		}
		return &models.FriendRequest{ID: uuid.New(), SenderID: s, ReceiverID: r, Status: enums.FriendRequestPending}, nil
	}}

	body := `{"receiver_id":"` + receiver.String() + `"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/friends/request", strings.NewReader(body)), sender)
	resp := httptest.NewRecorder()
	SendFriendRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Success bool                 `json:"success"`
			Data    models.FriendRequest `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !envelope.Data.Success || envelope.Data.Data.ReceiverID != receiver {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestSendFriendRequestDuplicateIsBadRequest(t *testing.T) {
	svc := &stubFriendsService{sendFn: func(ctx context.Context, s, r uuid.UUID) (*models.FriendRequest, error) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "friend request already pending")
	}}
	body := `{"receiver_id":"` + uuid.NewString() + `"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/friends/request", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	SendFriendRequest(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "already pending") {
		t.Fatalf("expected specific message, got %s", resp.Body.String())
	}
}

func TestRespondFriendRequestRejectsUnknownAction(t *testing.T) {
	svc := &stubFriendsService{respondFn: func(ctx context.Context, requestID, actorID uuid.UUID, decision enums.RequestDecision) (*friends.RespondResult, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	body := `{"request_id":"` + uuid.NewString() + `","action":"maybe"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/friends/respond", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	RespondFriendRequest(svc, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequestAccessAcceptsEmptyBody(t *testing.T) {
	tripID := uuid.New()
	userID := uuid.New()
	svc := &stubAccessService{createFn: func(ctx context.Context, tid, uid uuid.UUID, input accessrequests.CreateInput) (*models.PermissionRequest, error) {
		if tid != tripID || uid != userID || input.RequestedRole != "" {
			t.Fatalf("unexpected call %s %s %+v", tid, uid, input)
		}
		return &models.PermissionRequest{ID: uuid.New(), TripID: tid, UserID: uid, RequestedRole: enums.TripRoleViewer, Status: enums.PermissionRequestPending}, nil
	}}

	req := asUser(httptest.NewRequest(http.MethodPost, "/", nil), userID)
	req = addRouteParam(req, "tripId", tripID.String())
	resp := httptest.NewRecorder()
	RequestAccess(svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRespondAccessRequestForwardsDecision(t *testing.T) {
	tripID := uuid.New()
	requestID := uuid.New()
	var got enums.RequestDecision
	svc := &stubAccessService{respondFn: func(ctx context.Context, tid, rid, actor uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error) {
		if rid != requestID {
			t.Fatalf("unexpected request %s", rid)
		}
		got = decision
		return &models.PermissionRequest{ID: rid, Status: enums.PermissionRequestApproved}, nil
	}}

	req := asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"approve"}`)), uuid.New())
	req = addRouteParam(req, "tripId", tripID.String())
	req = addRouteParam(req, "requestId", requestID.String())
	resp := httptest.NewRecorder()
	RespondAccessRequest(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got != enums.DecisionApprove {
		t.Fatalf("expected approve got %s", got)
	}
}

func TestRespondAccessRequestStateConflict(t *testing.T) {
	svc := &stubAccessService{respondFn: func(ctx context.Context, tid, rid, actor uuid.UUID, decision enums.RequestDecision) (*models.PermissionRequest, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "request already resolved")
	}}
	req := asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"deny"}`)), uuid.New())
	req = addRouteParam(req, "tripId", uuid.NewString())
	req = addRouteParam(req, "requestId", uuid.NewString())
	resp := httptest.NewRecorder()
	RespondAccessRequest(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
