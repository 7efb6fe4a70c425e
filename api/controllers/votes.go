package controllers

import (
	"net/http"

	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/votes"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

// CastVote toggles the caller's up/down vote on an itinerary item.
func CastVote(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "votes")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input votes.VoteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// anonymous callers fall through so the service can answer 401 vs 403
		result, err := svc.Vote(r.Context(), tripID, middleware.UserIDFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetItemVotes(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "votes")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, r, logg, "itemId")
		if !ok {
			return
		}

		result, err := svc.ItemVotes(r.Context(), tripID, itemID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreatePoll(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "votes")
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

		var input votes.CreatePollInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		poll, err := svc.CreatePoll(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, poll)
	}
}

func VotePollOption(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "votes")
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
		pollID, ok := uuidParam(w, r, logg, "pollId")
		if !ok {
			return
		}

		var input votes.PollVoteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		poll, err := svc.VoteOption(r.Context(), tripID, pollID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, poll)
	}
}

func GetPoll(svc votes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "votes")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}
		pollID, ok := uuidParam(w, r, logg, "pollId")
		if !ok {
			return
		}

		poll, err := svc.PollResults(r.Context(), tripID, pollID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, poll)
	}
}
