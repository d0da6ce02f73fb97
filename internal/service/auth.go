package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

// Auth authenticates users by password or Google credential and hands them a
// token pair.
type Auth struct {
	users    model.UserStore
	verifier model.FederatedVerifier
	tokens   *TokenService
	logger   *logger.Logger
}

func NewAuth(users model.UserStore, verifier model.FederatedVerifier, tokens *TokenService, logger *logger.Logger) *Auth {
	return &Auth{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
	}
}

// NormalizeEmail is applied to every email before it reaches the user store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Auth) Login(ctx context.Context, email, password, clientIP string) (model.TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := a.users.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			a.logger.Info("Auth service: invalid credentials", "email", email)
			return model.TokenPair{}, model.ErrInvalidCredentials
		}
		a.logger.Error("Auth service: failed to authenticate user",
			"email", email,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to authenticate user: %w", err)
	}

	return a.tokens.Issue(ctx, user, FlowPassword, clientIP)
}

func (a *Auth) Register(ctx context.Context, email, password, clientIP string) (model.TokenPair, error) {
	email = NormalizeEmail(email)

	user, err := a.users.Create(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			a.logger.Info("Auth service: email already taken", "email", email)
			return model.TokenPair{}, model.ErrEmailTaken
		}
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered", "user_id", user.ID)

	return a.tokens.Issue(ctx, user, FlowRegister, clientIP)
}

// LoginWithGoogle requires a verified email because the email is what links a
// Google account to an existing password account.
func (a *Auth) LoginWithGoogle(ctx context.Context, credential, clientIP string) (model.TokenPair, error) {
	identity, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		return model.TokenPair{}, model.ErrInvalidFederatedToken
	}

	email := NormalizeEmail(identity.Email)
	if email == "" || !identity.EmailVerified {
		a.logger.Info("Auth service: google identity without verified email",
			"subject", identity.Subject)
		return model.TokenPair{}, model.ErrInvalidFederatedToken
	}

	user, err := a.users.GetOrCreateFederated(ctx, identity.Subject, email)
	if err != nil {
		if errors.Is(err, model.ErrInvalidFederatedToken) {
			a.logger.Info("Auth service: email bound to another google account",
				"subject", identity.Subject)
			return model.TokenPair{}, model.ErrInvalidFederatedToken
		}
		a.logger.Error("Auth service: failed to resolve federated user",
			"subject", identity.Subject,
			"error", err.Error())
		return model.TokenPair{}, fmt.Errorf("failed to resolve federated user: %w", err)
	}

	return a.tokens.Issue(ctx, user, FlowGoogle, clientIP)
}
