package enums

import "fmt"

// TripRole is a trip-scoped membership role.
type TripRole string

const (
	TripRoleAdmin       TripRole = "admin"
	TripRoleEditor      TripRole = "editor"
	TripRoleContributor TripRole = "contributor"
	TripRoleViewer      TripRole = "viewer"
)

var validTripRoles = []TripRole{
	TripRoleAdmin,
	TripRoleEditor,
	TripRoleContributor,
	TripRoleViewer,
}

// ValidTripRoles returns the closed role set in descending privilege order.
func ValidTripRoles() []TripRole {
	out := make([]TripRole, len(validTripRoles))
	copy(out, validTripRoles)
	return out
}

func (r TripRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known TripRole.
func (r TripRole) IsValid() bool {
	for _, candidate := range validTripRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTripRole converts raw input into a TripRole.
func ParseTripRole(value string) (TripRole, error) {
	for _, candidate := range validTripRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trip role %q", value)
}

// Rank orders roles by privilege; admin is highest. Unknown roles rank 0.
func (r TripRole) Rank() int {
	for i, candidate := range validTripRoles {
		if candidate == r {
			return len(validTripRoles) - i
		}
	}
	return 0
}

// HigherTripRole returns whichever of a and b carries more privilege.
func HigherTripRole(a, b TripRole) TripRole {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
