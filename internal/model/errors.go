package model

import "errors"

// ErrNotFound is returned by stores when the requested entity does not exist.
var ErrNotFound = errors.New("not found")

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already taken")

	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrWrongIssuer      = errors.New("wrong token issuer")
	ErrWrongAudience    = errors.New("wrong token audience")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenRevoked     = errors.New("token revoked")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrUserRevoked          = errors.New("user sessions revoked")

	ErrInvalidFederatedToken = errors.New("invalid federated token")

	// ErrDuplicateToken signals a unique index collision on a session token key.
	// Callers regenerate tokens and retry once.
	ErrDuplicateToken = errors.New("duplicate session token")
	// ErrStoreUnavailable wraps infrastructure failures of a backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)
