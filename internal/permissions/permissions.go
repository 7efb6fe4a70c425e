package permissions

import "github.com/withmetravel/withme-backend/pkg/enums"

// PermissionCheck is what a caller may do on one trip.
type PermissionCheck struct {
	CanView       bool            `json:"canView"`
	CanEdit       bool            `json:"canEdit"`
	CanManage     bool            `json:"canManage"`
	CanAddMembers bool            `json:"canAddMembers"`
	CanDeleteTrip bool            `json:"canDeleteTrip"`
	CanContribute bool            `json:"canContribute"`
	IsCreator     bool            `json:"isCreator"`
	Role          *enums.TripRole `json:"role"`
}

// Resolve derives trip capabilities from the caller's role, creator flag and trip visibility.
// A nil role means no active membership.
func Resolve(role *enums.TripRole, isCreator, isPublic bool) PermissionCheck {
	is := func(candidates ...enums.TripRole) bool {
		if role == nil {
			return false
		}
		for _, c := range candidates {
			if *role == c {
				return true
			}
		}
		return false
	}

	check := PermissionCheck{
		CanView:       role != nil || isCreator || isPublic,
		CanEdit:       is(enums.TripRoleAdmin, enums.TripRoleEditor) || isCreator,
		CanManage:     is(enums.TripRoleAdmin) || isCreator,
		CanAddMembers: is(enums.TripRoleAdmin) || isCreator,
		CanDeleteTrip: isCreator,
		CanContribute: is(enums.TripRoleAdmin, enums.TripRoleEditor, enums.TripRoleContributor) || isCreator,
		IsCreator:     isCreator,
	}
	if role != nil {
		r := *role
		check.Role = &r
	}
	return check
}

// Participant reports whether the caller is a member of any role or the creator.
// Public-only viewers are not participants.
func (p PermissionCheck) Participant() bool {
	return p.Role != nil || p.IsCreator
}

// Capability names a single gate checked by Require.
type Capability string

const (
	CapView        Capability = "view"
	CapEdit        Capability = "edit"
	CapManage      Capability = "manage"
	CapAddMembers  Capability = "add_members"
	CapDeleteTrip  Capability = "delete_trip"
	CapContribute  Capability = "contribute"
	CapParticipate Capability = "participate"
)

// Allows reports whether the check grants the capability.
func (p PermissionCheck) Allows(c Capability) bool {
	switch c {
	case CapView:
		return p.CanView
	case CapEdit:
		return p.CanEdit
	case CapManage:
		return p.CanManage
	case CapAddMembers:
		return p.CanAddMembers
	case CapDeleteTrip:
		return p.CanDeleteTrip
	case CapContribute:
		return p.CanContribute
	case CapParticipate:
		return p.Participant()
	default:
		return false
	}
}
