package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/token"
)

// Flow labels how a token pair was obtained.
const (
	FlowPassword = "password"
	FlowRegister = "register"
	FlowGoogle   = "google"
	FlowRefresh  = "refresh"
)

// TokenService issues access/refresh pairs and rotates them on refresh.
// A pair is returned only after its session has been persisted.
type TokenService struct {
	sessions   model.SessionStore
	users      model.UserStore
	codec      model.TokenCodec
	events     model.EventPublisher
	metrics    *metrics.Auth
	logger     *logger.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration

	now             func() time.Time
	newRefreshToken func() (string, error)
}

func NewTokenService(
	sessions model.SessionStore,
	users model.UserStore,
	codec model.TokenCodec,
	events model.EventPublisher,
	metrics *metrics.Auth,
	logger *logger.Logger,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	return &TokenService{
		sessions:        sessions,
		users:           users,
		codec:           codec,
		events:          events,
		metrics:         metrics,
		logger:          logger,
		accessTTL:       accessTTL,
		refreshTTL:      refreshTTL,
		now:             time.Now,
		newRefreshToken: token.GenerateRefreshToken,
	}
}

type mintedPair struct {
	access  string
	refresh string
}

func (s *TokenService) mint(user model.User, issuedAt time.Time) (mintedPair, error) {
	access, err := s.codec.Issue(token.BuildClaims(user, user.Roles, issuedAt), s.accessTTL)
	if err != nil {
		return mintedPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := s.newRefreshToken()
	if err != nil {
		return mintedPair{}, err
	}

	return mintedPair{access: access, refresh: refresh}, nil
}

func (s *TokenService) pair(p mintedPair, session model.Session) model.TokenPair {
	return model.TokenPair{
		AccessToken:  p.access,
		RefreshToken: p.refresh,
		ExpiresIn:    s.accessTTL,
		SessionID:    session.ID,
	}
}

// Issue creates a new session for user. A token collision is retried once
// with freshly generated tokens. Session and access token share the same
// microsecond-aligned issue instant.
func (s *TokenService) Issue(ctx context.Context, user model.User, flow, clientIP string) (model.TokenPair, error) {
	now := s.now().Truncate(time.Microsecond)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.mint(user, now)
		if err != nil {
			return model.TokenPair{}, err
		}

		session, err := s.sessions.Create(ctx, model.Session{
			UserID:                 user.ID,
			AccessTokenFingerprint: model.Fingerprint(p.access),
			RefreshTokenHash:       model.Fingerprint(p.refresh),
			IssuedAt:               now,
			ExpiresAt:              now.Add(s.refreshTTL),
			CreatedByIP:            clientIP,
		})
		if errors.Is(err, model.ErrDuplicateToken) {
			s.logger.Warn("Token service: session token collision, regenerating",
				"user_id", user.ID,
				"attempt", attempt+1)
			lastErr = err
			continue
		}
		if err != nil {
			s.logger.Error("Token service: failed to create session",
				"user_id", user.ID,
				"error", err.Error())
			return model.TokenPair{}, fmt.Errorf("failed to create session: %w", err)
		}

		s.metrics.TokenIssued(flow)
		s.publish(ctx, model.AuthEvent{
			Type:      model.AuthEventSessionIssued,
			UserID:    user.ID,
			SessionID: session.ID,
			ClientIP:  clientIP,
			At:        now,
		})
		s.logger.Info("Token service: session issued",
			"user_id", user.ID,
			"session_id", session.ID,
			"flow", flow)

		return s.pair(p, session), nil
	}

	return model.TokenPair{}, fmt.Errorf("failed to create session: %w", lastErr)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed: a second exchange of it yields ErrRefreshTokenNotFound.
func (s *TokenService) Refresh(ctx context.Context, refreshToken, clientIP string) (model.TokenPair, error) {
	if refreshToken == "" {
		s.metrics.RefreshResult("not_found")
		return model.TokenPair{}, model.ErrRefreshTokenNotFound
	}
	oldHash := model.Fingerprint(refreshToken)

	session, err := s.sessions.GetByRefreshToken(ctx, oldHash)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.metrics.RefreshResult("not_found")
			return model.TokenPair{}, model.ErrRefreshTokenNotFound
		}
		return model.TokenPair{}, fmt.Errorf("failed to get session: %w", err)
	}

	now := s.now().Truncate(time.Microsecond)
	if session.Expired(now) {
		s.dropSession(ctx, session, "expired")
		s.metrics.RefreshResult("expired")
		return model.TokenPair{}, model.ErrRefreshTokenExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.dropSession(ctx, session, "owner missing")
			s.metrics.RefreshResult("not_found")
			return model.TokenPair{}, model.ErrRefreshTokenNotFound
		}
		return model.TokenPair{}, fmt.Errorf("failed to get user: %w", err)
	}

	if user.RevokedSince(session.IssuedAt) {
		s.dropSession(ctx, session, "user revoked")
		s.metrics.RefreshResult("revoked")
		return model.TokenPair{}, model.ErrUserRevoked
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		p, err := s.mint(user, now)
		if err != nil {
			return model.TokenPair{}, err
		}

		rotated, err := s.sessions.Rotate(ctx, model.RotateParams{
			SessionID:              session.ID,
			OldRefreshHash:         oldHash,
			AccessTokenFingerprint: model.Fingerprint(p.access),
			RefreshTokenHash:       model.Fingerprint(p.refresh),
			IssuedAt:               now,
			ExpiresAt:              now.Add(s.refreshTTL),
		})
		switch {
		case err == nil:
			s.metrics.RefreshResult("ok")
			s.metrics.TokenIssued(FlowRefresh)
			s.publish(ctx, model.AuthEvent{
				Type:      model.AuthEventSessionRotated,
				UserID:    user.ID,
				SessionID: rotated.ID,
				ClientIP:  clientIP,
				At:        now,
			})
			return s.pair(p, rotated), nil
		case errors.Is(err, model.ErrDuplicateToken):
			s.logger.Warn("Token service: rotation token collision, regenerating",
				"session_id", session.ID,
				"attempt", attempt+1)
			lastErr = err
		case errors.Is(err, model.ErrNotFound):
			// another exchange of the same token won the rotation
			s.metrics.RefreshResult("not_found")
			return model.TokenPair{}, model.ErrRefreshTokenNotFound
		default:
			s.logger.Error("Token service: failed to rotate session",
				"session_id", session.ID,
				"error", err.Error())
			return model.TokenPair{}, fmt.Errorf("failed to rotate session: %w", err)
		}
	}

	return model.TokenPair{}, fmt.Errorf("failed to rotate session: %w", lastErr)
}

func (s *TokenService) dropSession(ctx context.Context, session model.Session, reason string) {
	if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
		s.logger.Warn("Token service: failed to delete session",
			"session_id", session.ID,
			"reason", reason,
			"error", err.Error())
	}
}

func (s *TokenService) publish(ctx context.Context, event model.AuthEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Token service: failed to publish event",
			"type", event.Type,
			"error", err.Error())
	}
}
