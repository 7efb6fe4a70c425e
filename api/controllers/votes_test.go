package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/internal/votes"
	"github.com/withmetravel/withme-backend/pkg/config"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
)

type stubVotesService struct {
	votes.Service
	voteFn func(ctx context.Context, tripID, userID uuid.UUID, input votes.VoteInput) (*votes.ItemVotes, error)
	pollFn func(ctx context.Context, tripID, pollID, userID uuid.UUID) (*votes.PollView, error)
}

func (s *stubVotesService) PollResults(ctx context.Context, tripID, pollID, userID uuid.UUID) (*votes.PollView, error) {
	return s.pollFn(ctx, tripID, pollID, userID)
}

func (s *stubVotesService) Vote(ctx context.Context, tripID, userID uuid.UUID, input votes.VoteInput) (*votes.ItemVotes, error) {
	return s.voteFn(ctx, tripID, userID, input)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestCastVoteReturnsTally(t *testing.T) {
	tripID := uuid.New()
	itemID := uuid.New()
	svc := &stubVotesService{voteFn: func(ctx context.Context, tid, uid uuid.UUID, input votes.VoteInput) (*votes.ItemVotes, error) {
		if input.ItemID != itemID || input.VoteType != "up" {
			t.Fatalf("unexpected input %+v", input)
		}
		return &votes.ItemVotes{ItemID: itemID, UserVote: &input.VoteType, NetCount: 1, UpCount: 1}, nil
	}}

	body := `{"itemId":"` + itemID.String() + `","voteType":"up"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), uuid.New())
	req = addRouteParam(req, "tripId", tripID.String())
	resp := httptest.NewRecorder()
	CastVote(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["netCount"] != float64(1) || envelope.Data["userVote"] != "up" {
		t.Fatalf("unexpected body %v", envelope.Data)
	}
}

func TestCastVoteAnonymousGetsServiceVerdict(t *testing.T) {
	svc := &stubVotesService{voteFn: func(ctx context.Context, tid, uid uuid.UUID, input votes.VoteInput) (*votes.ItemVotes, error) {
		if uid != uuid.Nil {
			t.Fatalf("expected anonymous caller")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}}
	body := `{"itemId":"` + uuid.NewString() + `","voteType":"down"}`
	req := addRouteParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "tripId", uuid.NewString())
	resp := httptest.NewRecorder()
	CastVote(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestGetPollUsesCamelCaseKeys(t *testing.T) {
	optionID := uuid.New()
	svc := &stubVotesService{pollFn: func(ctx context.Context, tid, pid, uid uuid.UUID) (*votes.PollView, error) {
		return &votes.PollView{UserOptionID: &optionID, TotalVotes: 3}, nil
	}}
	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), uuid.New())
	req = addRouteParam(req, "tripId", uuid.NewString())
	req = addRouteParam(req, "pollId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetPoll(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["userOptionId"] != optionID.String() || envelope.Data["totalVotes"] != float64(3) {
		t.Fatalf("unexpected body %v", envelope.Data)
	}
	if _, ok := envelope.Data["total_votes"]; ok {
		t.Fatalf("snake_case key leaked into poll view: %v", envelope.Data)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := testConfig()
	handler := HealthReady(cfg, testLogger(), map[string]Pinger{
		"database": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
	})
	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}

	handler = HealthReady(cfg, testLogger(), map[string]Pinger{"database": stubPinger{}})
	resp = httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return cfg
}
