package enums

import "fmt"

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func (v VoteType) IsValid() bool {
	return v == VoteUp || v == VoteDown
}

func ParseVoteType(value string) (VoteType, error) {
	v := VoteType(value)
	if !v.IsValid() {
		return "", fmt.Errorf("invalid vote type %q", value)
	}
	return v, nil
}
