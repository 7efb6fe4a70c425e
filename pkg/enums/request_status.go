package enums

import "fmt"

// PermissionRequestStatus is the lifecycle of a trip access request.
type PermissionRequestStatus string

const (
	PermissionRequestPending  PermissionRequestStatus = "pending"
	PermissionRequestApproved PermissionRequestStatus = "approved"
	PermissionRequestDenied   PermissionRequestStatus = "denied"
)

func (s PermissionRequestStatus) IsValid() bool {
	switch s {
	case PermissionRequestPending, PermissionRequestApproved, PermissionRequestDenied:
		return true
	}
	return false
}

// FriendRequestStatus is the lifecycle of a friend request.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

func (s FriendRequestStatus) IsValid() bool {
	switch s {
	case FriendRequestPending, FriendRequestAccepted, FriendRequestDeclined:
		return true
	}
	return false
}

// RequestDecision is the action a responder takes on a pending request.
type RequestDecision string

const (
	DecisionApprove RequestDecision = "approve"
	DecisionDeny    RequestDecision = "deny"
	DecisionAccept  RequestDecision = "accept"
	DecisionDecline RequestDecision = "decline"
)

// ParseRequestDecision accepts approve/accept and deny/decline spellings.
func ParseRequestDecision(value string) (RequestDecision, error) {
	switch RequestDecision(value) {
	case DecisionApprove, DecisionDeny, DecisionAccept, DecisionDecline:
		return RequestDecision(value), nil
	}
	return "", fmt.Errorf("invalid decision %q", value)
}

// Positive reports whether the decision grants the request.
func (d RequestDecision) Positive() bool {
	return d == DecisionApprove || d == DecisionAccept
}
