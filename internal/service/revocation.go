package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Revocation decides whether an access token predates its owner's last
// global logout.
type Revocation struct {
	revocations model.RevocationStore
	metrics     *metrics.Auth
	logger      *logger.Logger
}

func NewRevocation(revocations model.RevocationStore, metrics *metrics.Auth, logger *logger.Logger) *Revocation {
	return &Revocation{
		revocations: revocations,
		metrics:     metrics,
		logger:      logger,
	}
}

// Check returns ErrTokenRevoked for revoked tokens and for tokens whose owner
// no longer exists.
func (r *Revocation) Check(ctx context.Context, claims model.Claims) error {
	revokedAt, err := r.revocations.LastRevokedAt(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			r.metrics.RevocationRejected()
			return model.ErrTokenRevoked
		}
		return fmt.Errorf("failed to get revocation timestamp: %w", err)
	}

	if model.IssuedBeforeRevocation(claims.IssuedAt, revokedAt) {
		r.metrics.RevocationRejected()
		r.logger.Debug("Revocation service: token revoked",
			"user_id", claims.UserID,
			"issued_at", claims.IssuedAt,
			"revoked_at", *revokedAt)
		return model.ErrTokenRevoked
	}

	return nil
}
