package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{name: "malformed", err: model.ErrMalformedToken, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "signature", err: model.ErrInvalidSignature, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "issuer", err: model.ErrWrongIssuer, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "audience", err: model.ErrWrongAudience, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "expired", err: model.ErrTokenExpired, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "revoked", err: model.ErrTokenRevoked, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "user revoked", err: model.ErrUserRevoked, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "refresh not found", err: model.ErrRefreshTokenNotFound, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "refresh expired", err: model.ErrRefreshTokenExpired, wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "credentials", err: model.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantMsg: MsgInvalidCredentials},
		{name: "federated", err: model.ErrInvalidFederatedToken, wantStatus: http.StatusUnauthorized, wantMsg: MsgInvalidFederated},
		{name: "email taken", err: model.ErrEmailTaken, wantStatus: http.StatusConflict, wantMsg: MsgEmailTaken},
		{name: "wrapped", err: fmt.Errorf("failed to rotate: %w", model.ErrRefreshTokenNotFound), wantStatus: http.StatusUnauthorized, wantMsg: MsgTokenInvalid},
		{name: "store unavailable", err: fmt.Errorf("failed to x: %w: %w", model.ErrStoreUnavailable, errors.New("dial tcp")), wantStatus: http.StatusInternalServerError, wantMsg: MsgInternal},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantMsg: MsgInternal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, msg := StatusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}
