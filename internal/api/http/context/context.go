package context

import (
	"context"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

var _ model.ContextManager = (*Manager)(nil)

type contextKey int

const (
	userIDKey contextKey = iota
	tokenKey
)

// Manager represents an HTTP request context manager.
// It carries the authenticated user ID and the raw bearer token from the
// authentication middleware to the handlers.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserIDToContext returns a copy of ctx carrying userID.
func (m *Manager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID stored by SetUserIDToContext.
//
// Returns the user UUID and a boolean indicating if a non-nil user ID was found.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// SetTokenToContext returns a copy of ctx carrying the raw bearer token.
func (m *Manager) SetTokenToContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// GetTokenFromContext retrieves the raw bearer token stored by SetTokenToContext.
func (m *Manager) GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
