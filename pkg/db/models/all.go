package models

// All lists every model, for sqlite-backed tests that AutoMigrate.
func All() []any {
	return []any{
		&Profile{},
		&Trip{},
		&TripMember{},
		&PermissionRequest{},
		&ItinerarySection{},
		&ItineraryItem{},
		&Vote{},
		&Poll{},
		&PollOption{},
		&PollVote{},
		&FriendRequest{},
		&Friendship{},
		&Comment{},
		&CommentReaction{},
		&Notification{},
		&UserIntegration{},
		&OutboxEvent{},
	}
}
