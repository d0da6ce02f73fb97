package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenCodec signs and verifies access tokens.
type TokenCodec interface {
	Issue(claims Claims, ttl time.Duration) (string, error)
	Parse(token string) (Claims, error)
	// ParseUnverified decodes claims without checking signature or expiry.
	ParseUnverified(token string) (Claims, error)
}

// Claims is the identity carried by an access token.
type Claims struct {
	UserID    uuid.UUID
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// TokenPair is what the client receives after login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	SessionID    uuid.UUID
}
