package controllers

import (
	"net/http"
	"strings"

	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/pagination"
)

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		notificationID, ok := uuidParam(w, r, logg, "notificationId")
		if !ok {
			return
		}

		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "notifications")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}

		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
