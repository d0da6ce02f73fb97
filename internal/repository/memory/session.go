package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

type SessionRepository struct {
	store *Store
}

// tokenTaken must be called with store.mu held.
func (r *SessionRepository) tokenTaken(exceptID uuid.UUID, fingerprint, refreshHash string) bool {
	for id, sess := range r.store.sessions {
		if id == exceptID {
			continue
		}
		if sess.AccessTokenFingerprint == fingerprint || sess.RefreshTokenHash == refreshHash {
			return true
		}
	}
	return false
}

func (r *SessionRepository) Create(ctx context.Context, session model.Session) (model.Session, error) {
	if err := checkContext(ctx); err != nil {
		return model.Session{}, err
	}

	defer r.store.lockWrite(ctx)()

	if _, ok := r.store.users[session.UserID]; !ok {
		return model.Session{}, model.ErrNotFound
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if _, exists := r.store.sessions[session.ID]; exists || r.tokenTaken(session.ID, session.AccessTokenFingerprint, session.RefreshTokenHash) {
		return model.Session{}, model.ErrDuplicateToken
	}

	now := r.store.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	r.store.sessions[session.ID] = session

	return session, nil
}

func (r *SessionRepository) find(ctx context.Context, match func(model.Session) bool) (model.Session, error) {
	if err := checkContext(ctx); err != nil {
		return model.Session{}, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, sess := range r.store.sessions {
		if match(sess) {
			return sess, nil
		}
	}
	return model.Session{}, model.ErrNotFound
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshHash string) (model.Session, error) {
	return r.find(ctx, func(s model.Session) bool { return s.RefreshTokenHash == refreshHash })
}

func (r *SessionRepository) GetByAccessFingerprint(ctx context.Context, fingerprint string) (model.Session, error) {
	return r.find(ctx, func(s model.Session) bool { return s.AccessTokenFingerprint == fingerprint })
}

func (r *SessionRepository) Rotate(ctx context.Context, params model.RotateParams) (model.Session, error) {
	if err := checkContext(ctx); err != nil {
		return model.Session{}, err
	}

	defer r.store.lockWrite(ctx)()

	sess, ok := r.store.sessions[params.SessionID]
	if !ok || sess.RefreshTokenHash != params.OldRefreshHash {
		return model.Session{}, model.ErrNotFound
	}
	if r.tokenTaken(sess.ID, params.AccessTokenFingerprint, params.RefreshTokenHash) {
		return model.Session{}, model.ErrDuplicateToken
	}

	sess.AccessTokenFingerprint = params.AccessTokenFingerprint
	sess.RefreshTokenHash = params.RefreshTokenHash
	sess.IssuedAt = params.IssuedAt
	sess.ExpiresAt = params.ExpiresAt
	sess.UpdatedAt = r.store.now()
	r.store.sessions[sess.ID] = sess

	return sess, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	defer r.store.lockWrite(ctx)()

	delete(r.store.sessions, id)
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(ctx, func(s model.Session) bool { return s.UserID == userID })
}

func (r *SessionRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(ctx, func(s model.Session) bool {
		if s.Expired(now) {
			return true
		}
		owner, ok := r.store.users[s.UserID]
		return !ok || owner.RevokedSince(s.IssuedAt)
	})
}

func (r *SessionRepository) deleteWhere(ctx context.Context, match func(model.Session) bool) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	defer r.store.lockWrite(ctx)()

	var n int64
	for id, sess := range r.store.sessions {
		if match(sess) {
			delete(r.store.sessions, id)
			n++
		}
	}
	return n, nil
}
