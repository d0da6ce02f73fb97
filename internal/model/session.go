package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SessionStore persists outstanding access/refresh token pairs.
type SessionStore interface {
	// Create returns ErrDuplicateToken if the fingerprint or refresh hash is taken.
	Create(ctx context.Context, session Session) (Session, error)
	GetByRefreshToken(ctx context.Context, refreshHash string) (Session, error)
	GetByAccessFingerprint(ctx context.Context, fingerprint string) (Session, error)
	// Rotate swaps the token keys of a session only if it still holds
	// params.OldRefreshHash. A stale hash yields ErrNotFound.
	Rotate(ctx context.Context, params RotateParams) (Session, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteStale removes sessions that expired before now or were issued at or
	// before their owner's last revocation.
	DeleteStale(ctx context.Context, now time.Time) (int64, error)
}

// Session is one device's outstanding token pair.
type Session struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	AccessTokenFingerprint string
	RefreshTokenHash       string
	IssuedAt               time.Time
	ExpiresAt              time.Time
	CreatedByIP            string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// RotateParams describes a single-use refresh rotation.
type RotateParams struct {
	SessionID              uuid.UUID
	OldRefreshHash         string
	AccessTokenFingerprint string
	RefreshTokenHash       string
	IssuedAt               time.Time
	ExpiresAt              time.Time
}

// Expired reports whether the session can no longer be refreshed at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Fingerprint returns the lookup key stored in place of a bearer secret.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Transactor runs fn in a single store transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
