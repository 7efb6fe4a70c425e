package controllers

import (
	"net/http"

	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/members"
	"github.com/withmetravel/withme-backend/pkg/enums"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

type updateMemberRoleBody struct {
	Role enums.TripRole `json:"role" validate:"required"`
}

func ListMembers(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
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

		list, err := svc.List(r.Context(), tripID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func InviteMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
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

		var input members.InviteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.Invite(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

func AcceptInvite(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
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

		member, err := svc.AcceptInvite(r.Context(), tripID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

func UpdateMemberRole(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
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
		targetID, ok := uuidParam(w, r, logg, "userId")
		if !ok {
			return
		}

		var body updateMemberRoleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.UpdateRole(r.Context(), tripID, userID, targetID, body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, member)
	}
}

// RemoveMember also serves self-leave when userId is the caller.
func RemoveMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
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
		targetID, ok := uuidParam(w, r, logg, "userId")
		if !ok {
			return
		}

		if err := svc.Remove(r.Context(), tripID, userID, targetID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"removed": true})
	}
}

// FixRoles rewrites every invalid member role to viewer. System admins only.
func FixRoles(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "members")
			return
		}

		fixed, err := svc.FixRoles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "fixed", fixed), "members.roles_fixed")
		}
		responses.WriteSuccess(w, map[string]int64{"fixed": fixed})
	}
}
