package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/friends"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

type friendRequestBody struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
}

type friendRespondBody struct {
	RequestID uuid.UUID `json:"request_id" validate:"required"`
	Action    string    `json:"action" validate:"required"`
}

// friendResult keeps the {success, data} shape web clients already parse.
type friendResult struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func SendFriendRequest(svc friends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "friends")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var body friendRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.SendRequest(r.Context(), userID, body.ReceiverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, friendResult{Success: true, Data: request})
	}
}

func RespondFriendRequest(svc friends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "friends")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var body friendRespondBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := decisionBody{Action: body.Action}.decision()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Respond(r.Context(), body.RequestID, userID, decision)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, friendResult{Success: true, Data: result})
	}
}

func ListFriends(svc friends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "friends")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.ListFriends(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ListFriendRequests(svc friends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "friends")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		pending, err := svc.ListPending(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pending)
	}
}

func Unfriend(svc friends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "friends")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		otherID, ok := uuidParam(w, r, logg, "userId")
		if !ok {
			return
		}

		if err := svc.Unfriend(r.Context(), userID, otherID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, friendResult{Success: true})
	}
}
