package models

import (
	"encoding/json"
	"time"
)

// User is the profile document created once at sign-up.
type User struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Account holds local credentials. The uid doubles as the User uuid.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never sent to clients
	CreatedAt    time.Time `json:"createdAt"`
}

// MarshalJSON keeps the password hash out of API responses.
func (a Account) MarshalJSON() ([]byte, error) {
	type AccountAlias Account // prevent recursion
	return json.Marshal(&struct{ AccountAlias }{AccountAlias: AccountAlias(a)})
}

// AccountStorage is the on-disk form of an Account, hash included.
type AccountStorage struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a Account) ToStorage() AccountStorage {
	return AccountStorage{ID: a.ID, Email: a.Email, PasswordHash: a.PasswordHash, CreatedAt: a.CreatedAt}
}

func (as AccountStorage) ToAccount() Account {
	return Account{ID: as.ID, Email: as.Email, PasswordHash: as.PasswordHash, CreatedAt: as.CreatedAt}
}

// Session is an authenticated bearer token bound to an account.
type Session struct {
	Token     string    `json:"token"`
	AccountID string    `json:"accountId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
}

// IsExpired returns true once ExpiresAt has passed.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
