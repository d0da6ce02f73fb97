package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/coursemarket-auth/internal/model"
)

var _ model.SessionStore = (*SessionRepository)(nil)

const sessionColumns = `id, user_id, access_token_fingerprint, refresh_token_hash, issued_at, expires_at, created_by_ip, created_at, updated_at`

type SessionRepository struct {
	db *Connection
}

func NewSessionRepository(db *Connection) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (model.Session, error) {
	var s model.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.AccessTokenFingerprint, &s.RefreshTokenHash,
		&s.IssuedAt, &s.ExpiresAt, &s.CreatedByIP, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *SessionRepository) Create(ctx context.Context, session model.Session) (model.Session, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	query := `INSERT INTO sessions (id, user_id, access_token_fingerprint, refresh_token_hash, issued_at, expires_at, created_by_ip)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + sessionColumns

	saved, err := scanSession(r.db.execQueryer(ctx).QueryRow(ctx, query,
		session.ID, session.UserID, session.AccessTokenFingerprint, session.RefreshTokenHash,
		session.IssuedAt, session.ExpiresAt, session.CreatedByIP,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Session{}, model.ErrDuplicateToken
		}
		return model.Session{}, storeError("create session", err)
	}

	return saved, nil
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshHash string) (model.Session, error) {
	return r.getOne(ctx, "get session by refresh token",
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, refreshHash)
}

func (r *SessionRepository) GetByAccessFingerprint(ctx context.Context, fingerprint string) (model.Session, error) {
	return r.getOne(ctx, "get session by access fingerprint",
		`SELECT `+sessionColumns+` FROM sessions WHERE access_token_fingerprint = $1`, fingerprint)
}

func (r *SessionRepository) getOne(ctx context.Context, op, query string, args ...any) (model.Session, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	s, err := scanSession(r.db.execQueryer(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		return model.Session{}, storeError(op, err)
	}

	return s, nil
}

// Rotate is a compare-and-swap on the refresh hash: of two concurrent calls
// presenting the same old hash exactly one updates the row.
func (r *SessionRepository) Rotate(ctx context.Context, params model.RotateParams) (model.Session, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE sessions
			  SET access_token_fingerprint = $3, refresh_token_hash = $4, issued_at = $5, expires_at = $6, updated_at = NOW()
			  WHERE id = $1 AND refresh_token_hash = $2
			  RETURNING ` + sessionColumns

	s, err := scanSession(r.db.execQueryer(ctx).QueryRow(ctx, query,
		params.SessionID, params.OldRefreshHash, params.AccessTokenFingerprint, params.RefreshTokenHash,
		params.IssuedAt, params.ExpiresAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Session{}, model.ErrNotFound
		}
		if isUniqueViolation(err) {
			return model.Session{}, model.ErrDuplicateToken
		}
		return model.Session{}, storeError("rotate session", err)
	}

	return s, nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return storeError("delete session", err)
	}
	return nil
}

func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, storeError("delete sessions for user", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) DeleteStale(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM sessions s
			  USING users u
			  WHERE s.user_id = u.id
			    AND (s.expires_at <= $1
			         OR (u.last_revoked_at IS NOT NULL AND s.issued_at <= u.last_revoked_at))`

	tag, err := r.db.execQueryer(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, storeError("delete stale sessions", err)
	}
	return tag.RowsAffected(), nil
}
