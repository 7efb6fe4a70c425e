package enums

import "fmt"

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationFriendRequest   NotificationType = "friend_request"
	NotificationFriendAccepted  NotificationType = "friend_accepted"
	NotificationTripInvite      NotificationType = "trip_invite"
	NotificationAccessRequest   NotificationType = "access_request"
	NotificationAccessApproved  NotificationType = "access_approved"
	NotificationAccessDenied    NotificationType = "access_denied"
	NotificationRoleChanged     NotificationType = "role_changed"
	NotificationCommentReply    NotificationType = "comment_reply"
	NotificationIntegrationFail NotificationType = "integration_failed"
)

var validNotificationTypes = []NotificationType{
	NotificationFriendRequest,
	NotificationFriendAccepted,
	NotificationTripInvite,
	NotificationAccessRequest,
	NotificationAccessApproved,
	NotificationAccessDenied,
	NotificationRoleChanged,
	NotificationCommentReply,
	NotificationIntegrationFail,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
