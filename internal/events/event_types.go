package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/book-store-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventSessionRefreshed  EventType = "session_refreshed"
	EventSessionEnded      EventType = "session_ended"
	EventSessionTerminated EventType = "session_terminated"
	EventTokenRevoked      EventType = "token_revoked"
	EventUserRegistered    EventType = "user_registered"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType EventType, userID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: at,
		Payload:   payload,
	}
}

// SessionTerminatedPayload explains why the gate ended a session.
type SessionTerminatedPayload struct {
	Reason string `json:"reason"`
}

// TokenRevokedPayload describes a blacklisted token without exposing it.
type TokenRevokedPayload struct {
	TokenID   string           `json:"token_id"`
	Kind      domain.TokenKind `json:"kind"`
	ExpiresAt time.Time        `json:"expires_at"`
}
