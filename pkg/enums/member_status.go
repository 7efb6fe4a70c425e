package enums

import "fmt"

// MemberStatus tracks whether a trip membership has been accepted.
type MemberStatus string

const (
	MemberStatusPending MemberStatus = "pending"
	MemberStatusActive  MemberStatus = "active"
)

func (s MemberStatus) IsValid() bool {
	return s == MemberStatusPending || s == MemberStatusActive
}

func ParseMemberStatus(value string) (MemberStatus, error) {
	s := MemberStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid member status %q", value)
	}
	return s, nil
}
