package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/token"
)

const (
	testIssuer   = "coursemarket-auth"
	testAudience = "coursemarket-api"
)

func newCodec() *token.JWT {
	return token.NewJWT("test-secret", testIssuer, testAudience)
}

func issue(t *testing.T, codec *token.JWT, userID uuid.UUID, issuedAt time.Time) string {
	t.Helper()
	tok, err := codec.Issue(model.Claims{UserID: userID, IssuedAt: issuedAt}, time.Hour)
	require.NoError(t, err)
	return tok
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusNoContent)
	})
}
