package controllers

import (
	"net/http"
	"strings"

	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/comments"
	"github.com/withmetravel/withme-backend/pkg/enums"
	pkgerrors "github.com/withmetravel/withme-backend/pkg/errors"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

type updateCommentBody struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type reactionBody struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

func CreateComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "comments")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		var input comments.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, comment)
	}
}

// ListComments expects ?content_type=&content_id= and pages top-level threads.
func ListComments(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "comments")
			return
		}

		contentType, err := enums.ParseCommentContentType(strings.TrimSpace(r.URL.Query().Get("content_type")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content_type"))
			return
		}
		contentID, err := validators.ParseQueryUUID(r, "content_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.UserIDFromContext(r.Context()), comments.ListParams{
			ContentType: contentType,
			ContentID:   contentID,
			Params:      params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func UpdateComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "comments")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		commentID, ok := uuidParam(w, r, logg, "commentId")
		if !ok {
			return
		}

		var body updateCommentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		comment, err := svc.Update(r.Context(), commentID, userID, body.Content)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comment)
	}
}

func DeleteComment(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "comments")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		commentID, ok := uuidParam(w, r, logg, "commentId")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), commentID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func ToggleCommentReaction(svc comments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "comments")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		commentID, ok := uuidParam(w, r, logg, "commentId")
		if !ok {
			return
		}

		var body reactionBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ToggleReaction(r.Context(), commentID, userID, body.Emoji)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
