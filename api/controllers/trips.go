package controllers

import (
	"net/http"

	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/internal/trips"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

func CreateTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "trips")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var input trips.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trip, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trip)
	}
}

// ListTrips returns trips the caller created or is an active member of.
func ListTrips(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "trips")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "trips")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.Get(r.Context(), tripID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func UpdateTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "trips")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input trips.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trip, err := svc.Update(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trip)
	}
}

func DeleteTrip(svc trips.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "trips")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		actor := trips.Actor{UserID: userID, IsSystemAdmin: middleware.IsSystemAdmin(r.Context())}
		if err := svc.Delete(r.Context(), tripID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// GetTripPermissions reports the caller's capabilities. Anonymous callers are
// resolved as non-members.
func GetTripPermissions(checker permissions.Checker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			serviceUnavailable(w, r, logg, "permissions")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		check, err := checker.Check(r.Context(), tripID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, check)
	}
}
