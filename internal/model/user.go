package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore is the user-credential store collaborator.
type UserStore interface {
	// Authenticate returns the user matching email and password or ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (User, error)
	// Create registers a password user. Returns ErrEmailTaken on conflict.
	Create(ctx context.Context, email, password string) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// GetOrCreateFederated resolves a Google account by subject, links it to an
	// existing user with the same email, or creates a new user.
	GetOrCreateFederated(ctx context.Context, subject, email string) (User, error)
	RevocationStore
}

// RevocationStore reads and writes the per-user global revocation timestamp.
type RevocationStore interface {
	// LastRevokedAt returns nil when the user has never been revoked.
	LastRevokedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error)
	// BumpRevocation moves LastRevokedAt forward to at. It never moves it back.
	BumpRevocation(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// RevocationRecorder publishes a committed revocation timestamp to readers
// that do not consult the store directly.
type RevocationRecorder interface {
	// Record makes at visible to readers unless a later timestamp already is.
	Record(ctx context.Context, userID uuid.UUID, at time.Time) error
}

// PasswordHasher hashes and verifies stored password material.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	// Compare returns a non-nil error when password does not match hash.
	// An empty hash never matches.
	Compare(hash []byte, password string) error
}

// User represents a stored user with authentication material.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  []byte
	Roles         []string
	GoogleSubject *string
	LastRevokedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RevokedSince reports whether a credential issued at issuedAt predates the
// user's last global revocation.
func (u User) RevokedSince(issuedAt time.Time) bool {
	return IssuedBeforeRevocation(issuedAt, u.LastRevokedAt)
}

// IssuedBeforeRevocation reports whether issuedAt is at or before revokedAt.
// A nil revokedAt means the user was never revoked.
func IssuedBeforeRevocation(issuedAt time.Time, revokedAt *time.Time) bool {
	if revokedAt == nil {
		return false
	}
	return !issuedAt.After(*revokedAt)
}
