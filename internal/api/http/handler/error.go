package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

const (
	MsgTokenInvalid       = "token invalid or revoked"
	MsgInvalidCredentials = "invalid credentials"
	MsgInvalidFederated   = "invalid federated token"
	MsgEmailTaken         = "email is already taken"
	MsgInternal           = "internal server error"
)

var tokenErrors = []error{
	model.ErrMalformedToken,
	model.ErrInvalidSignature,
	model.ErrWrongIssuer,
	model.ErrWrongAudience,
	model.ErrTokenExpired,
	model.ErrTokenRevoked,
	model.ErrUserRevoked,
	model.ErrRefreshTokenNotFound,
	model.ErrRefreshTokenExpired,
}

// StatusFor maps a service error to the HTTP status and the client-facing message.
// Internal error text never reaches the client.
func StatusFor(err error) (int, string) {
	for _, target := range tokenErrors {
		if errors.Is(err, target) {
			return http.StatusUnauthorized, MsgTokenInvalid
		}
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, MsgInvalidCredentials
	case errors.Is(err, model.ErrInvalidFederatedToken):
		return http.StatusUnauthorized, MsgInvalidFederated
	case errors.Is(err, model.ErrEmailTaken):
		return http.StatusConflict, MsgEmailTaken
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
