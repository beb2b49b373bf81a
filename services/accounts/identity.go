package accounts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"bingetracker/internal/auth"
	"bingetracker/internal/docstore"
	"bingetracker/models"
	"bingetracker/services/sessions"
)

var (
	ErrFieldsRequired      = errors.New("All fields are required")
	ErrCredentialsRequired = errors.New("Email and password cannot be empty")
	ErrUserNotFound        = errors.New("User not found")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// UserStore holds the profile documents.
type UserStore interface {
	CreateUserIfMissing(ctx context.Context, user models.User) (bool, error)
	GetUser(ctx context.Context, uuid string) (models.User, error)
}

// SessionStore issues and checks bearer tokens.
type SessionStore interface {
	Create(accountID, userAgent, ipAddress string) (models.Session, error)
	Validate(token string) (models.Session, error)
	Revoke(token string) error
	HasActive(accountID string) bool
}

// TokenVerifier accepts tokens minted by an external identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.ExternalIdentity, error)
}

var (
	_ UserStore     = (*docstore.Store)(nil)
	_ SessionStore  = (*sessions.Service)(nil)
	_ TokenVerifier = (*auth.OIDCVerifier)(nil)
)

// ClientInfo describes the caller of a sign-in.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// Identity is the sign-up, sign-in and session surface of the app.
type Identity struct {
	accounts *Service
	sessions SessionStore
	users    UserStore
	external TokenVerifier
}

func NewIdentity(accounts *Service, sessions SessionStore, users UserStore) *Identity {
	return &Identity{accounts: accounts, sessions: sessions, users: users}
}

// WithExternal enables ID tokens from an external provider as bearer tokens.
func (i *Identity) WithExternal(v TokenVerifier) *Identity {
	i.external = v
	return i
}

// SignUp creates credentials and the user document, then opens a session.
func (i *Identity) SignUp(ctx context.Context, name, email, password string, client ClientInfo) (models.User, models.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, models.Session{}, ErrFieldsRequired
	}

	account, err := i.accounts.Create(email, password)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("Sign-up failed: %w", err)
	}

	user := models.User{UUID: account.ID, Name: name, Email: account.Email}
	if _, err := i.users.CreateUserIfMissing(ctx, user); err != nil {
		if derr := i.accounts.Delete(account.ID); derr != nil {
			log.Printf("[accounts] rollback of %s failed: %v", account.ID, derr)
		}
		return models.User{}, models.Session{}, fmt.Errorf("Sign-up failed: %w", err)
	}

	session, err := i.sessions.Create(account.ID, client.UserAgent, client.IPAddress)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("Sign-up failed: %w", err)
	}
	log.Printf("[accounts] signed up %s", account.ID)
	return user, session, nil
}

// SignIn checks credentials and opens a session.
func (i *Identity) SignIn(ctx context.Context, email, password string, client ClientInfo) (models.User, models.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, models.Session{}, ErrCredentialsRequired
	}

	account, err := i.accounts.Authenticate(email, password)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("Sign-in failed: %w", err)
	}

	user, err := i.user(ctx, account.ID)
	if err != nil {
		return models.User{}, models.Session{}, err
	}

	session, err := i.sessions.Create(account.ID, client.UserAgent, client.IPAddress)
	if err != nil {
		return models.User{}, models.Session{}, fmt.Errorf("Sign-in failed: %w", err)
	}
	return user, session, nil
}

// SignOut revokes token. Unknown tokens are ignored. lastSession is true when
// the revoked session was the account's only live one, so per-user state can
// be released.
func (i *Identity) SignOut(token string) (lastSession bool, err error) {
	session, verr := i.sessions.Validate(token)
	if err := i.sessions.Revoke(token); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if verr != nil {
		return false, nil
	}
	return !i.sessions.HasActive(session.AccountID), nil
}

// CurrentUser resolves a bearer token to its user. Local sessions are tried
// first; with an external provider configured, the token is then checked as
// an ID token and the user document is provisioned on first sight.
func (i *Identity) CurrentUser(ctx context.Context, token string) (models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.User{}, ErrNotAuthenticated
	}

	session, err := i.sessions.Validate(token)
	if err == nil {
		return i.user(ctx, session.AccountID)
	}
	if i.external == nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}

	identity, verr := i.external.Verify(ctx, token)
	if verr != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrNotAuthenticated, verr)
	}
	created, err := i.users.CreateUserIfMissing(ctx, models.User{UUID: identity.Subject, Name: identity.Name, Email: identity.Email})
	if err != nil {
		return models.User{}, fmt.Errorf("provision user: %w", err)
	}
	if created {
		log.Printf("[accounts] provisioned external user %s (%s)", identity.Subject, identity.Email)
	}
	return i.user(ctx, identity.Subject)
}

func (i *Identity) user(ctx context.Context, uid string) (models.User, error) {
	user, err := i.users.GetUser(ctx, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("Failed to fetch user: %w", err)
	}
	return user, nil
}
