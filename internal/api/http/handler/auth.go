package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/model"
)

const (
	maxBodyBytes     = 1 << 20
	maxPasswordBytes = 72
)

// AuthService defines login and registration operations.
type AuthService interface {
	Login(ctx context.Context, email, password, clientIP string) (model.TokenPair, error)
	Register(ctx context.Context, email, password, clientIP string) (model.TokenPair, error)
	LoginWithGoogle(ctx context.Context, credential, clientIP string) (model.TokenPair, error)
}

// TokenService defines the refresh operation.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken, clientIP string) (model.TokenPair, error)
}

// LogoutService defines single-device and global logout.
type LogoutService interface {
	ResolveSession(ctx context.Context, accessToken string) (model.Session, error)
	LogoutCurrentDevice(ctx context.Context, sessionID uuid.UUID) error
	LogoutAllDevices(ctx context.Context, userID uuid.UUID) error
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func newTokenPairResponse(pair model.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	}
}

// Auth handles the HTTP endpoints for authentication and session lifecycle.
type Auth struct {
	authService    AuthService
	tokenService   TokenService
	logoutService  LogoutService
	contextManager model.ContextManager
	trustProxy     bool
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler. With trustProxy the client IP is taken
// from the first X-Forwarded-For entry.
func NewAuth(
	authService AuthService,
	tokenService TokenService,
	logoutService LogoutService,
	contextManager model.ContextManager,
	trustProxy bool,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		tokenService:   tokenService,
		logoutService:  logoutService,
		contextManager: contextManager,
		trustProxy:     trustProxy,
		logger:         logger,
	}
}

// Login exchanges email and password for a token pair.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeCredentials(w, r, &req) {
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password, h.clientIP(r))
	if err != nil {
		h.fail(w, "login", err)
		return
	}

	WriteJSON(w, http.StatusOK, newTokenPairResponse(pair))
}

// Register creates a password account and signs it in.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decodeCredentials(w, r, &req) {
		return
	}

	pair, err := h.authService.Register(r.Context(), req.Email, req.Password, h.clientIP(r))
	if err != nil {
		h.fail(w, "register", err)
		return
	}

	WriteJSON(w, http.StatusCreated, newTokenPairResponse(pair))
}

// LoginWithGoogle exchanges a Google ID token or access token for a token pair.
func (h *Auth) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.IDToken) == "" {
		WriteError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	pair, err := h.authService.LoginWithGoogle(r.Context(), req.IDToken, h.clientIP(r))
	if err != nil {
		h.fail(w, "google login", err)
		return
	}

	WriteJSON(w, http.StatusOK, newTokenPairResponse(pair))
}

// Refresh rotates a refresh token.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	pair, err := h.tokenService.Refresh(r.Context(), req.RefreshToken, h.clientIP(r))
	if err != nil {
		h.fail(w, "refresh", err)
		return
	}

	WriteJSON(w, http.StatusOK, newTokenPairResponse(pair))
}

// Logout ends the session the presented access token belongs to.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.contextManager.GetTokenFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, MsgTokenInvalid)
		return
	}

	session, err := h.logoutService.ResolveSession(r.Context(), token)
	if err != nil {
		h.fail(w, "logout", err)
		return
	}

	if err := h.logoutService.LogoutCurrentDevice(r.Context(), session.ID); err != nil {
		h.fail(w, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every token of the authenticated user.
func (h *Auth) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextManager.GetUserIDFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, MsgTokenInvalid)
		return
	}

	if err := h.logoutService.LogoutAllDevices(r.Context(), userID); err != nil {
		h.fail(w, "logout all", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Auth) fail(w http.ResponseWriter, op string, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Auth handler: request failed",
			"operation", op,
			"error", err.Error())
	} else {
		h.logger.Debug("Auth handler: request rejected",
			"operation", op,
			"error", err.Error())
	}
	WriteError(w, status, message)
}

func (h *Auth) decodeCredentials(w http.ResponseWriter, r *http.Request, req *credentialsRequest) bool {
	if !decode(w, r, req) {
		return false
	}

	email := strings.TrimSpace(req.Email)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		WriteError(w, http.StatusBadRequest, "a valid email is required")
		return false
	case req.Password == "":
		WriteError(w, http.StatusBadRequest, "password is required")
		return false
	case len(req.Password) > maxPasswordBytes:
		WriteError(w, http.StatusBadRequest, "password is too long")
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		WriteError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (h *Auth) clientIP(r *http.Request) string {
	return ClientIP(r, h.trustProxy)
}

// ClientIP returns the caller address. X-Forwarded-For is only honoured
// behind a trusted proxy.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
