package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bingetracker/internal/auth"
	"bingetracker/models"
	"bingetracker/services/accounts"
	"bingetracker/utils"
)

type fakeIdentity struct {
	signUpErr  error
	signInErr  error
	revoked    []string
	othersLive bool
	lastClient accounts.ClientInfo
}

func (f *fakeIdentity) SignUp(_ context.Context, name, email, _ string, client accounts.ClientInfo) (models.User, models.Session, error) {
	f.lastClient = client
	if f.signUpErr != nil {
		return models.User{}, models.Session{}, f.signUpErr
	}
	return models.User{UUID: "u1", Name: name, Email: email}, models.Session{Token: "tok", AccountID: "u1", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, _ string, client accounts.ClientInfo) (models.User, models.Session, error) {
	f.lastClient = client
	if f.signInErr != nil {
		return models.User{}, models.Session{}, f.signInErr
	}
	return models.User{UUID: "u1", Name: "Ada", Email: email}, models.Session{Token: "tok", AccountID: "u1"}, nil
}

func (f *fakeIdentity) SignOut(token string) (bool, error) {
	f.revoked = append(f.revoked, token)
	return !f.othersLive, nil
}

func (f *fakeIdentity) CurrentUser(_ context.Context, token string) (models.User, error) {
	if token != "tok" {
		return models.User{}, accounts.ErrNotAuthenticated
	}
	return models.User{UUID: "u1", Name: "Ada", Email: "ada@example.com"}, nil
}

type forgetRecorder struct{ users []string }

func (f *forgetRecorder) Forget(userID string) { f.users = append(f.users, userID) }

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	return httptest.NewRequest(method, target, &buf)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestSignUpReturnsToken(t *testing.T) {
	id := &fakeIdentity{}
	h := NewAuthHandler(id)

	req := jsonRequest(http.MethodPost, "/api/auth/signup", SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"})
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "10.1.2.3:5555"
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "tok" || resp.User.Name != "Ada" || resp.ExpiresAt != "2030-01-01T00:00:00Z" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if id.lastClient.UserAgent != "test-agent" || id.lastClient.IPAddress != "10.1.2.3" {
		t.Fatalf("unexpected client info %+v", id.lastClient)
	}
}

func TestSignUpRecordsForwardedClientOnlyFromTrustedProxy(t *testing.T) {
	signUp := func(h *AuthHandler, id *fakeIdentity) string {
		req := jsonRequest(http.MethodPost, "/api/auth/signup", SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "secret"})
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", "198.51.100.4")
		h.SignUp(httptest.NewRecorder(), req)
		return id.lastClient.IPAddress
	}

	id := &fakeIdentity{}
	if got := signUp(NewAuthHandler(id), id); got != "10.0.0.1" {
		t.Fatalf("without trusted proxies expected peer address, got %q", got)
	}

	proxies, err := utils.ParseTrustedProxies([]string{"10.0.0.0/24"})
	if err != nil {
		t.Fatalf("parse proxies: %v", err)
	}
	id = &fakeIdentity{}
	if got := signUp(NewAuthHandler(id).TrustProxies(proxies), id); got != "198.51.100.4" {
		t.Fatalf("behind a trusted proxy expected forwarded client, got %q", got)
	}
}

func TestAuthErrorStatuses(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{accounts.ErrFieldsRequired, http.StatusBadRequest},
		{accounts.ErrCredentialsRequired, http.StatusBadRequest},
		{fmt.Errorf("Sign-up failed: %w", accounts.ErrEmailExists), http.StatusConflict},
		{fmt.Errorf("Sign-in failed: %w", accounts.ErrInvalidCredentials), http.StatusUnauthorized},
		{accounts.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("Sign-up failed: disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewAuthHandler(&fakeIdentity{signUpErr: tt.err})
		rec := httptest.NewRecorder()
		h.SignUp(rec, jsonRequest(http.MethodPost, "/", SignUpRequest{}))
		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		if got := errorBody(t, rec); got != tt.err.Error() {
			t.Errorf("expected message %q, got %q", tt.err.Error(), got)
		}
	}
}

func TestSignInMessage(t *testing.T) {
	h := NewAuthHandler(&fakeIdentity{signInErr: accounts.ErrCredentialsRequired})
	rec := httptest.NewRecorder()
	h.SignIn(rec, jsonRequest(http.MethodPost, "/", SignInRequest{}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Email and password cannot be empty" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestSignInRejectsBadBody(t *testing.T) {
	h := NewAuthHandler(&fakeIdentity{})
	rec := httptest.NewRecorder()
	h.SignIn(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSignOutRevokesAndForgets(t *testing.T) {
	id := &fakeIdentity{}
	forget := &forgetRecorder{}
	h := NewAuthHandler(id, forget)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u1", "tok"))
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(id.revoked) != 1 || id.revoked[0] != "tok" {
		t.Fatalf("expected tok revoked, got %v", id.revoked)
	}
	if len(forget.users) != 1 || forget.users[0] != "u1" {
		t.Fatalf("expected u1 forgotten, got %v", forget.users)
	}
}

func TestSignOutKeepsStateWhileOtherSessionsLive(t *testing.T) {
	id := &fakeIdentity{othersLive: true}
	forget := &forgetRecorder{}
	h := NewAuthHandler(id, forget)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "u1", "tok"))
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(forget.users) != 0 {
		t.Fatalf("expected nothing forgotten, got %v", forget.users)
	}
}

func TestMe(t *testing.T) {
	h := NewAuthHandler(&fakeIdentity{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer other")
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
