package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	TripID *uuid.UUID `json:"tripId,omitempty"`
	Role   string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable JSON shape stored in outbox_events.payload.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
