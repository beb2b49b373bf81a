package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bingetracker/internal/auth"
	"bingetracker/models"
	"bingetracker/services/accounts"
	"bingetracker/utils"
)

type identityService interface {
	SignUp(ctx context.Context, name, email, password string, client accounts.ClientInfo) (models.User, models.Session, error)
	SignIn(ctx context.Context, email, password string, client accounts.ClientInfo) (models.User, models.Session, error)
	SignOut(token string) (lastSession bool, err error)
	CurrentUser(ctx context.Context, token string) (models.User, error)
}

var _ identityService = (*accounts.Identity)(nil)

// Forgetter drops per-user state once a user's last session ends.
type Forgetter interface {
	Forget(userID string)
}

// AuthHandler handles sign-up, sign-in and session endpoints.
type AuthHandler struct {
	identity identityService
	forget   []Forgetter
	proxies  utils.TrustedProxies
}

// NewAuthHandler creates a new auth handler. Each forgetter is told about
// users whose last session was revoked.
func NewAuthHandler(identity identityService, forget ...Forgetter) *AuthHandler {
	return &AuthHandler{identity: identity, forget: forget}
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by sign-up and sign-in.
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      models.User `json:"user"`
}

func newAuthResponse(user models.User, session models.Session) AuthResponse {
	return AuthResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      user,
	}
}

// TrustProxies lets the listed proxies report the client address recorded
// on new sessions.
func (h *AuthHandler) TrustProxies(p utils.TrustedProxies) *AuthHandler {
	h.proxies = p
	return h
}

func (h *AuthHandler) clientInfo(r *http.Request) accounts.ClientInfo {
	return accounts.ClientInfo{
		UserAgent: r.Header.Get("User-Agent"),
		IPAddress: h.proxies.ClientIP(r),
	}
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, accounts.ErrFieldsRequired),
		errors.Is(err, accounts.ErrCredentialsRequired),
		errors.Is(err, accounts.ErrEmailRequired),
		errors.Is(err, accounts.ErrPasswordRequired):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, accounts.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, accounts.ErrEmailExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// SignUp registers a new user and returns a session token.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, session, err := h.identity.SignUp(r.Context(), req.Name, req.Email, req.Password, h.clientInfo(r))
	if err != nil {
		writeJSONError(w, err.Error(), authStatus(err))
		return
	}
	writeJSON(w, http.StatusCreated, newAuthResponse(user, session))
}

// SignIn authenticates a user and returns a session token.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, session, err := h.identity.SignIn(r.Context(), req.Email, req.Password, h.clientInfo(r))
	if err != nil {
		writeJSONError(w, err.Error(), authStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, newAuthResponse(user, session))
}

// SignOut revokes the current session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := auth.GetToken(r)
	if token == "" {
		token = extractBearerToken(r)
	}
	if token == "" {
		writeJSONError(w, "no session token", http.StatusBadRequest)
		return
	}

	lastSession, err := h.identity.SignOut(token)
	if err != nil {
		writeJSONError(w, "failed to revoke session", http.StatusInternalServerError)
		return
	}
	if uid := auth.GetUserID(r); uid != "" && lastSession {
		for _, f := range h.forget {
			f.Forget(uid)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := auth.GetToken(r)
	if token == "" {
		token = extractBearerToken(r)
	}

	user, err := h.identity.CurrentUser(r.Context(), token)
	if err != nil {
		writeJSONError(w, err.Error(), authStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
