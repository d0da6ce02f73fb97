package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/security"
)

var _ model.UserStore = (*UserRepository)(nil)

const userColumns = `id, email, password_hash, roles, google_subject, last_revoked_at, created_at, updated_at`

type UserRepository struct {
	db     *Connection
	hasher model.PasswordHasher
}

func NewUserRepository(db *Connection, hasher model.PasswordHasher) *UserRepository {
	return &UserRepository{
		db:     db,
		hasher: hasher,
	}
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Roles, &user.GoogleSubject,
		&user.LastRevokedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	user, err := r.getByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			_ = r.hasher.Compare(nil, password)
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, err
	}

	if err := r.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("failed to verify password: %w", err)
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, email, password string) (model.User, error) {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (id, email, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING ` + userColumns

	user, err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, uuid.New(), email, hash))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrEmailTaken
		}
		return model.User{}, storeError("create user", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storeError("get user by id", err)
	}

	return user, nil
}

func (r *UserRepository) getByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storeError("get user by email", err)
	}

	return user, nil
}

func (r *UserRepository) getByGoogleSubject(ctx context.Context, subject string) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE google_subject = $1`

	user, err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storeError("get user by google subject", err)
	}

	return user, nil
}

// GetOrCreateFederated links a Google subject to a password account with the
// same email only when that account has no Google subject yet. An email bound
// to a different subject is rejected.
func (r *UserRepository) GetOrCreateFederated(ctx context.Context, subject, email string) (model.User, error) {
	user, err := r.getByGoogleSubject(ctx, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}

	user, err = r.linkGoogleSubject(ctx, subject, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}

	user, err = r.createFederated(ctx, subject, email)
	if err != nil {
		if !isUniqueViolation(err) {
			return model.User{}, storeError("create federated user", err)
		}
		// lost a race with a concurrent first login of the same subject
		if user, err := r.getByGoogleSubject(ctx, subject); err == nil {
			return user, nil
		}
		return model.User{}, model.ErrInvalidFederatedToken
	}

	return user, nil
}

func (r *UserRepository) linkGoogleSubject(ctx context.Context, subject, email string) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users SET google_subject = $1, updated_at = NOW()
			  WHERE email = $2 AND google_subject IS NULL
			  RETURNING ` + userColumns

	user, err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, subject, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, storeError("link google subject", err)
	}

	return user, nil
}

func (r *UserRepository) createFederated(ctx context.Context, subject, email string) (model.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (id, email, google_subject)
			  VALUES ($1, $2, $3)
			  RETURNING ` + userColumns

	return scanUser(r.db.execQueryer(ctx).QueryRow(ctx, query, uuid.New(), email, subject))
}

func (r *UserRepository) LastRevokedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var revokedAt *time.Time
	err := r.db.execQueryer(ctx).QueryRow(ctx, `SELECT last_revoked_at FROM users WHERE id = $1`, userID).Scan(&revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, storeError("get last revoked at", err)
	}

	return revokedAt, nil
}

func (r *UserRepository) BumpRevocation(ctx context.Context, userID uuid.UUID, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := `UPDATE users
			  SET last_revoked_at = GREATEST(COALESCE(last_revoked_at, $2), $2), updated_at = NOW()
			  WHERE id = $1`

	tag, err := r.db.execQueryer(ctx).Exec(ctx, query, userID, at)
	if err != nil {
		return storeError("bump revocation", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
