package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	httpctx "github.com/dtroode/coursemarket-auth/internal/api/http/context"
	"github.com/dtroode/coursemarket-auth/internal/testutil"
	"github.com/dtroode/coursemarket-auth/internal/token"
)

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	codec := newCodec()
	userID := uuid.New()
	valid := issue(t, codec, userID, time.Now())
	foreign := issue(t, token.NewJWT("other-secret", testIssuer, testAudience), userID, time.Now())
	wrongAudience := issue(t, token.NewJWT("test-secret", testIssuer, "other-api"), userID, time.Now())
	expired := issue(t, codec, userID, time.Now().Add(-2*time.Hour))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCalled bool
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusNoContent, wantCalled: true},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusNoContent, wantCalled: true},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "foreign signature", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + wrongAudience, wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctxMgr := httpctx.NewManager()
			m := NewAuthenticate(codec, ctxMgr, testutil.MakeNoopLogger())

			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotID, ok := ctxMgr.GetUserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, userID, gotID)
				gotToken, ok := ctxMgr.GetTokenFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, valid, gotToken)
				w.WriteHeader(http.StatusNoContent)
			})

			r := httptest.NewRequest(http.MethodPost, "/logout", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			m.Handle(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}
