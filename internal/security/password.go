package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Compare when the password does not match the hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// Hasher hashes and verifies passwords using bcrypt.
type Hasher struct {
	Cost int
	// dummy is compared against when no stored hash exists so that unknown
	// emails take as long as wrong passwords.
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost, clamped to the range bcrypt accepts.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	dummy, _ := bcrypt.GenerateFromPassword([]byte("coursemarket-dummy-password"), cost)
	return &Hasher{Cost: cost, dummy: dummy}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password string) ([]byte, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return b, nil
}

// Compare verifies password against hash. An empty hash never matches.
func (h *Hasher) Compare(hash []byte, password string) error {
	if len(hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}
