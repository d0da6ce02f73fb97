package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/coursemarket-auth/internal/api/http/handler"
	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// RevocationChecker decides whether claims were issued before the owner's
// last global logout.
type RevocationChecker interface {
	Check(ctx context.Context, claims model.Claims) error
}

// Revocation runs after Authenticate and rejects tokens revoked by a
// logout from all devices.
type Revocation struct {
	checker        RevocationChecker
	codec          model.TokenCodec
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewRevocation(checker RevocationChecker, codec model.TokenCodec, contextManager model.ContextManager, logger *logger.Logger) *Revocation {
	return &Revocation{
		checker:        checker,
		codec:          codec,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (m *Revocation) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.contextManager.GetTokenFromContext(r.Context())
		if !ok {
			m.logger.Error("Revocation middleware: no token in context")
			handler.WriteError(w, http.StatusInternalServerError, handler.MsgInternal)
			return
		}

		claims, err := m.codec.ParseUnverified(token)
		if err != nil {
			m.logger.Error("Revocation middleware: failed to decode claims", "error", err.Error())
			handler.WriteError(w, http.StatusInternalServerError, handler.MsgInternal)
			return
		}

		if err := m.checker.Check(r.Context(), claims); err != nil {
			if errors.Is(err, model.ErrTokenRevoked) {
				handler.WriteError(w, http.StatusUnauthorized, handler.MsgTokenInvalid)
				return
			}
			m.logger.Error("Revocation middleware: check failed",
				"user_id", claims.UserID,
				"error", err.Error())
			handler.WriteError(w, http.StatusInternalServerError, handler.MsgInternal)
			return
		}

		next.ServeHTTP(w, r)
	})
}
