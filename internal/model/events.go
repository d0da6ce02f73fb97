package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthEventType names a session lifecycle transition.
type AuthEventType string

const (
	AuthEventSessionIssued    AuthEventType = "session.issued"
	AuthEventSessionRotated   AuthEventType = "session.rotated"
	AuthEventSessionLoggedOut AuthEventType = "session.logged_out"
	AuthEventUserRevoked      AuthEventType = "user.revoked"
)

// AuthEvent is published for audit consumers.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UserID    uuid.UUID     `json:"user_id"`
	SessionID uuid.UUID     `json:"session_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
	At        time.Time     `json:"at"`
}

// EventPublisher delivers auth events. Implementations must not block for long.
type EventPublisher interface {
	Publish(ctx context.Context, event AuthEvent) error
}
