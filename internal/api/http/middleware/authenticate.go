package middleware

import (
	"net/http"
	"strings"

	"github.com/dtroode/coursemarket-auth/internal/api/http/handler"
	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Authenticate validates bearer tokens and injects the user ID and the raw
// token into the request context.
type Authenticate struct {
	codec          model.TokenCodec
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(codec model.TokenCodec, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{codec: codec, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid access token with 401.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			handler.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := m.codec.Parse(token)
		if err != nil {
			m.logger.Debug("Authenticate middleware: token rejected", "error", err.Error())
			handler.WriteError(w, http.StatusUnauthorized, handler.MsgTokenInvalid)
			return
		}

		ctx := m.contextManager.SetUserIDToContext(r.Context(), claims.UserID)
		ctx = m.contextManager.SetTokenToContext(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
