package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidUser = errors.New("username and password are required")

// AddUser creates or replaces an account. roles is a comma separated list.
func AddUser(ctx context.Context, db *sql.DB, username, password string, roles ...string) error {
	if username == "" || password == "" {
		return ErrInvalidUser
	}
	if len(roles) == 0 {
		roles = []string{"inspector"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO user (username, password_hash, roles) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET password_hash = excluded.password_hash, roles = excluded.roles`,
		username,
		hash,
		strings.Join(roles, ","),
	)
	return err
}
