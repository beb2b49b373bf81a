package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bingetracker/models"
)

// CreateUserIfMissing inserts the user document unless one already exists
// for the uuid. It reports whether a row was written.
func (s *Store) CreateUserIfMissing(ctx context.Context, user models.User) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (uuid, name, email) VALUES (?, ?, ?) ON CONFLICT (uuid) DO NOTHING`),
		user.UUID, user.Name, user.Email)
	if err != nil {
		return false, fmt.Errorf("docstore: create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("docstore: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetUser loads a user document by uuid.
func (s *Store) GetUser(ctx context.Context, uuid string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT uuid, name, email FROM users WHERE uuid = ?`), uuid).
		Scan(&u.UUID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("docstore: get user %s: %w", uuid, err)
	}
	return u, nil
}
