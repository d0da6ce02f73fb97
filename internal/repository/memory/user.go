package memory

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/model"
	"github.com/dtroode/coursemarket-auth/internal/security"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	store *Store
}

func cloneUser(u model.User) model.User {
	u.PasswordHash = slices.Clone(u.PasswordHash)
	u.Roles = slices.Clone(u.Roles)
	if u.GoogleSubject != nil {
		s := *u.GoogleSubject
		u.GoogleSubject = &s
	}
	if u.LastRevokedAt != nil {
		t := *u.LastRevokedAt
		u.LastRevokedAt = &t
	}
	return u
}

// findUser must be called with store.mu held.
func (r *UserRepository) findUser(match func(model.User) bool) (model.User, bool) {
	for _, u := range r.store.users {
		if match(u) {
			return u, true
		}
	}
	return model.User{}, false
}

func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	r.store.mu.RLock()
	user, ok := r.findUser(func(u model.User) bool { return u.Email == email })
	r.store.mu.RUnlock()

	var hash []byte
	if ok {
		hash = user.PasswordHash
	}
	if err := r.store.hasher.Compare(hash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return model.User{}, model.ErrInvalidCredentials
		}
		return model.User{}, err
	}

	return cloneUser(user), nil
}

func (r *UserRepository) Create(ctx context.Context, email, password string) (model.User, error) {
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	hash, err := r.store.hasher.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	defer r.store.lockWrite(ctx)()

	if _, taken := r.findUser(func(u model.User) bool { return u.Email == email }); taken {
		return model.User{}, model.ErrEmailTaken
	}

	now := r.store.now()
	user := model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.store.users[user.ID] = user

	return cloneUser(user), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) GetOrCreateFederated(ctx context.Context, subject, email string) (model.User, error) {
	if err := checkContext(ctx); err != nil {
		return model.User{}, err
	}

	defer r.store.lockWrite(ctx)()

	if user, ok := r.findUser(func(u model.User) bool {
		return u.GoogleSubject != nil && *u.GoogleSubject == subject
	}); ok {
		return cloneUser(user), nil
	}

	now := r.store.now()
	if user, ok := r.findUser(func(u model.User) bool { return u.Email == email }); ok {
		if user.GoogleSubject != nil {
			return model.User{}, model.ErrInvalidFederatedToken
		}
		user.GoogleSubject = &subject
		user.UpdatedAt = now
		r.store.users[user.ID] = user
		return cloneUser(user), nil
	}

	user := model.User{
		ID:            uuid.New(),
		Email:         email,
		Roles:         []string{},
		GoogleSubject: &subject,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.store.users[user.ID] = user

	return cloneUser(user), nil
}

func (r *UserRepository) LastRevokedAt(ctx context.Context, userID uuid.UUID) (*time.Time, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneUser(user).LastRevokedAt, nil
}

func (r *UserRepository) BumpRevocation(ctx context.Context, userID uuid.UUID, at time.Time) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	defer r.store.lockWrite(ctx)()

	user, ok := r.store.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	if user.LastRevokedAt == nil || at.After(*user.LastRevokedAt) {
		user.LastRevokedAt = &at
		user.UpdatedAt = r.store.now()
		r.store.users[userID] = user
	}
	return nil
}

// SetRoles replaces the roles of a user. There is no role management API; this
// seeds fixtures.
func (r *UserRepository) SetRoles(userID uuid.UUID, roles []string) error {
	defer r.store.lockWrite(context.Background())()

	user, ok := r.store.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	user.Roles = slices.Clone(roles)
	r.store.users[userID] = user
	return nil
}
