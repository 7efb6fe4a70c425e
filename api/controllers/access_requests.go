package controllers

import (
	"net/http"

	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/accessrequests"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

type decisionBody struct {
	Action string `json:"action" validate:"required"`
}

func (b decisionBody) decision() (enums.RequestDecision, error) {
	decision, err := enums.ParseRequestDecision(b.Action)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action").WithDetails(map[string]any{"field": "action"})
	}
	return decision, nil
}

// RequestAccess files (or resubmits) a request to join a trip. The body is optional.
func RequestAccess(svc accessrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "access requests")
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

		var input accessrequests.CreateInput
		if err := validators.DecodeOptionalJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Create(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func ListAccessRequests(svc accessrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "access requests")
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

		pending, err := svc.ListPending(r.Context(), tripID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pending)
	}
}

func RespondAccessRequest(svc accessrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "access requests")
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
		requestID, ok := uuidParam(w, r, logg, "requestId")
		if !ok {
			return
		}

		var body decisionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := body.decision()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Respond(r.Context(), tripID, requestID, userID, decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
