package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID       uuid.UUID  `json:"userId"`
	StationaryID *uuid.UUID `json:"stationaryId,omitempty"`
	Role         string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events and
// published verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
