package models

import "time"

// Event types published on user lifecycle changes.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the message body published when a user record changes.
type UserEvent struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	UserID     uint       `json:"user_id"`
	Email      string     `json:"email"`
	Status     UserStatus `json:"status,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}
