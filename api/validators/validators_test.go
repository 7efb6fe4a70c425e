package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
)

type sampleBody struct {
	Name  string `json:"name" validate:"required,max=5"`
	Count int    `json:"count"`
}

type optionalBody struct {
	Message *string `json:"message" validate:"omitempty,max=10"`
}

func TestDecodeJSONBodyValidatesFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"toolongname"}`))
	var dest sampleBody
	err := DecodeJSONBody(req, &dest)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok || details["name"] == "" {
		t.Fatalf("expected json field name in details, got %v", pkgerrors.As(err).Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok","extra":1}`))
	var dest sampleBody
	if err := DecodeJSONBody(req, &dest); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeOptionalJSONBodyAcceptsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var dest optionalBody
	if err := DecodeOptionalJSONBody(req, &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dest); err == nil {
		t.Fatal("expected required body error")
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("tripId", id.String())
	rctx.URLParams.Add("bad", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "tripId")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "bad"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(req, "limit", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default 20, got %d (%v)", v, err)
	}
}
