package enums

import "fmt"

// CommentContentType identifies what a comment is attached to.
type CommentContentType string

const (
	CommentOnDestination   CommentContentType = "destination"
	CommentOnTrip          CommentContentType = "trip"
	CommentOnItineraryItem CommentContentType = "itinerary_item"
	CommentOnGroupIdea     CommentContentType = "group_idea"
	CommentOnImage         CommentContentType = "image"
	CommentOnNote          CommentContentType = "note"
)

var validCommentContentTypes = []CommentContentType{
	CommentOnDestination,
	CommentOnTrip,
	CommentOnItineraryItem,
	CommentOnGroupIdea,
	CommentOnImage,
	CommentOnNote,
}

func (c CommentContentType) IsValid() bool {
	for _, candidate := range validCommentContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// TripScoped reports whether reads and writes are gated by trip permissions.
func (c CommentContentType) TripScoped() bool {
	return c == CommentOnTrip || c == CommentOnItineraryItem
}

func ParseCommentContentType(value string) (CommentContentType, error) {
	for _, candidate := range validCommentContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid comment content type %q", value)
}
