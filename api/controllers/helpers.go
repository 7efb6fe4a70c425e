package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/pagination"
)

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeInternal, "%s service unavailable", name))
}

// requireCaller returns the signed-in user or writes a 401.
func requireCaller(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return uuid.Nil, false
	}
	return userID, true
}

// tripParam parses {tripId} and tags the log context with it.
func tripParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, *http.Request, bool) {
	tripID, err := validators.ParseUUIDParam(r, "tripId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, r, false
	}
	if logg != nil {
		r = r.WithContext(logg.WithTripID(r.Context(), tripID.String()))
	}
	return tripID, r, true
}

func uuidParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) (uuid.UUID, bool) {
	id, err := validators.ParseUUIDParam(r, name)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}
