package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

func rolePtr(r enums.TripRole) *enums.TripRole { return &r }

func allRoleInputs() []*enums.TripRole {
	out := []*enums.TripRole{nil}
	for _, r := range enums.ValidTripRoles() {
		out = append(out, rolePtr(r))
	}
	return out
}

func TestResolve_DeleteImpliesCreator(t *testing.T) {
	for _, role := range allRoleInputs() {
		for _, creator := range []bool{true, false} {
			for _, public := range []bool{true, false} {
				check := Resolve(role, creator, public)
				if check.CanDeleteTrip {
					assert.True(t, check.IsCreator)
				}
				assert.Equal(t, creator, check.CanDeleteTrip)
			}
		}
	}
}

func TestResolve_PublicTripIsViewableByEveryone(t *testing.T) {
	for _, role := range allRoleInputs() {
		for _, creator := range []bool{true, false} {
			assert.True(t, Resolve(role, creator, true).CanView)
		}
	}
}

func TestResolve_PrivateNonMemberGetsNothing(t *testing.T) {
	check := Resolve(nil, false, false)
	assert.Equal(t, PermissionCheck{}, check)
	assert.Nil(t, check.Role)
	assert.False(t, check.Participant())
}

func TestResolve_RoleMatrix(t *testing.T) {
	tests := []struct {
		role       enums.TripRole
		edit       bool
		manage     bool
		contribute bool
	}{
		{enums.TripRoleAdmin, true, true, true},
		{enums.TripRoleEditor, true, false, true},
		{enums.TripRoleContributor, false, false, true},
		{enums.TripRoleViewer, false, false, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			check := Resolve(rolePtr(tc.role), false, false)
			assert.True(t, check.CanView)
			assert.Equal(t, tc.edit, check.CanEdit)
			assert.Equal(t, tc.manage, check.CanManage)
			assert.Equal(t, tc.manage, check.CanAddMembers)
			assert.Equal(t, tc.contribute, check.CanContribute)
			assert.False(t, check.CanDeleteTrip)
			if assert.NotNil(t, check.Role) {
				assert.Equal(t, tc.role, *check.Role)
			}
			assert.True(t, check.Participant())
		})
	}
}

func TestResolve_CreatorWithoutMembershipHasEverything(t *testing.T) {
	check := Resolve(nil, true, false)
	assert.True(t, check.CanView)
	assert.True(t, check.CanEdit)
	assert.True(t, check.CanManage)
	assert.True(t, check.CanAddMembers)
	assert.True(t, check.CanDeleteTrip)
	assert.True(t, check.CanContribute)
	assert.Nil(t, check.Role)
}

func TestResolve_PublicViewerIsNotParticipant(t *testing.T) {
	check := Resolve(nil, false, true)
	assert.True(t, check.Allows(CapView))
	assert.False(t, check.Allows(CapParticipate))
	assert.False(t, check.Allows(CapContribute))
}
