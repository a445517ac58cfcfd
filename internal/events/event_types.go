package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventProfileUpdated EventType = "profile_updated"
	EventAuthRejected   EventType = "auth_rejected"
)

// Actor identifies the user behind an event, when known.
type Actor struct {
	UserID  int64  `json:"user_id,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// Event represents a domain event emitted by services and middleware.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, actor Actor, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	Identifier string `json:"identifier"`
}

// ProfileUpdatedPayload lists the fields changed by a profile update.
type ProfileUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// AuthRejectedPayload payload. Kind is internal and never sent to clients.
type AuthRejectedPayload struct {
	Kind   string `json:"kind"`
	Method string `json:"method"`
	Path   string `json:"path"`
}
