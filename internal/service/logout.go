package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Logout ends one session or every session of a user.
type Logout struct {
	sessions    model.SessionStore
	revocations model.RevocationStore
	// recorder receives the timestamp after the transaction commits. May be nil.
	recorder model.RevocationRecorder
	tx       model.Transactor
	events   model.EventPublisher
	metrics  *metrics.Auth
	logger   *logger.Logger
	// purge deletes all session rows on logout-all in addition to the
	// timestamp bump. Otherwise the janitor removes them later.
	purge bool
	now   func() time.Time
}

func NewLogout(
	sessions model.SessionStore,
	revocations model.RevocationStore,
	recorder model.RevocationRecorder,
	tx model.Transactor,
	events model.EventPublisher,
	metrics *metrics.Auth,
	logger *logger.Logger,
	purge bool,
) *Logout {
	return &Logout{
		sessions:    sessions,
		revocations: revocations,
		recorder:    recorder,
		tx:          tx,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		purge:       purge,
		now:         time.Now,
	}
}

// ResolveSession maps a presented access token to the session it was issued with.
func (l *Logout) ResolveSession(ctx context.Context, accessToken string) (model.Session, error) {
	session, err := l.sessions.GetByAccessFingerprint(ctx, model.Fingerprint(accessToken))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Session{}, model.ErrTokenRevoked
		}
		return model.Session{}, fmt.Errorf("failed to resolve session: %w", err)
	}
	return session, nil
}

// LogoutCurrentDevice deletes a single session. Other sessions stay valid.
func (l *Logout) LogoutCurrentDevice(ctx context.Context, sessionID uuid.UUID) error {
	if err := l.sessions.DeleteByID(ctx, sessionID); err != nil {
		l.logger.Error("Logout service: failed to delete session",
			"session_id", sessionID,
			"error", err.Error())
		return fmt.Errorf("failed to delete session: %w", err)
	}

	l.metrics.Logout("device")
	if err := l.events.Publish(ctx, model.AuthEvent{Type: model.AuthEventSessionLoggedOut, SessionID: sessionID, At: l.now()}); err != nil {
		l.logger.Warn("Logout service: failed to publish event", "error", err.Error())
	}
	l.logger.Info("Logout service: session ended", "session_id", sessionID)
	return nil
}

// LogoutAllDevices moves the user's revocation timestamp to now, which
// invalidates every access and refresh token issued up to this instant.
func (l *Logout) LogoutAllDevices(ctx context.Context, userID uuid.UUID) error {
	now := l.now().Truncate(time.Microsecond)

	err := l.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := l.revocations.BumpRevocation(ctx, userID, now); err != nil {
			return fmt.Errorf("failed to bump revocation: %w", err)
		}
		if !l.purge {
			return nil
		}
		n, err := l.sessions.DeleteAllForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
		l.logger.Debug("Logout service: sessions purged", "user_id", userID, "count", n)
		return nil
	})
	if err != nil {
		l.logger.Error("Logout service: failed to revoke user",
			"user_id", userID,
			"error", err.Error())
		return err
	}

	if l.recorder != nil {
		if err := l.recorder.Record(ctx, userID, now); err != nil {
			l.logger.Error("Logout service: failed to record revocation",
				"user_id", userID,
				"error", err.Error())
			return fmt.Errorf("failed to record revocation: %w", err)
		}
	}

	l.metrics.Logout("all")
	if err := l.events.Publish(ctx, model.AuthEvent{Type: model.AuthEventUserRevoked, UserID: userID, At: now}); err != nil {
		l.logger.Warn("Logout service: failed to publish event", "error", err.Error())
	}
	l.logger.Info("Logout service: all sessions revoked", "user_id", userID)
	return nil
}
