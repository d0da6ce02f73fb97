package model

import (
	"context"

	"github.com/google/uuid"
)

// ContextManager carries the authenticated identity through a request.
type ContextManager interface {
	SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context
	GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool)
	SetTokenToContext(ctx context.Context, token string) context.Context
	GetTokenFromContext(ctx context.Context) (string, bool)
}
