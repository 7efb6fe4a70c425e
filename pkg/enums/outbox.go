package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateTrip              OutboxAggregateType = "trip"
	AggregateTripMember        OutboxAggregateType = "trip_member"
	AggregatePermissionRequest OutboxAggregateType = "permission_request"
	AggregateItineraryItem     OutboxAggregateType = "itinerary_item"
	AggregateFriendship        OutboxAggregateType = "friendship"
	AggregateComment           OutboxAggregateType = "comment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateTrip,
	AggregateTripMember,
	AggregatePermissionRequest,
	AggregateItineraryItem,
	AggregateFriendship,
	AggregateComment,
}

func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names the change that happened to an aggregate.
type OutboxEventType string

const (
	EventTripCreated           OutboxEventType = "trip_created"
	EventTripUpdated           OutboxEventType = "trip_updated"
	EventTripDeleted           OutboxEventType = "trip_deleted"
	EventMemberAdded           OutboxEventType = "member_added"
	EventMemberRoleChanged     OutboxEventType = "member_role_changed"
	EventMemberRemoved         OutboxEventType = "member_removed"
	EventAccessRequested       OutboxEventType = "access_requested"
	EventAccessRequestResolved OutboxEventType = "access_request_resolved"
	EventItineraryChanged      OutboxEventType = "itinerary_changed"
	EventItineraryReordered    OutboxEventType = "itinerary_reordered"
	EventItineraryVoteChanged  OutboxEventType = "itinerary_vote_changed"
	EventFriendshipCreated     OutboxEventType = "friendship_created"
	EventCommentCreated        OutboxEventType = "comment_created"
)

var validEventTypes = []OutboxEventType{
	EventTripCreated,
	EventTripUpdated,
	EventTripDeleted,
	EventMemberAdded,
	EventMemberRoleChanged,
	EventMemberRemoved,
	EventAccessRequested,
	EventAccessRequestResolved,
	EventItineraryChanged,
	EventItineraryReordered,
	EventItineraryVoteChanged,
	EventFriendshipCreated,
	EventCommentCreated,
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
