package token

import (
	"slices"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

// BuildClaims turns a verified user into the claim set signed into access tokens.
// Login, registration, federated login and refresh all go through it so tokens
// carry the same shape regardless of how they were obtained.
func BuildClaims(user model.User, roles []string, issuedAt time.Time) model.Claims {
	return model.Claims{
		UserID:   user.ID,
		Roles:    slices.Clone(roles),
		IssuedAt: issuedAt,
	}
}
