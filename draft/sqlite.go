package draft

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type sqliteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend stores drafts in the draft table created by the
// database migrations.
func NewSQLiteBackend(db *sql.DB) Backend {
	return &sqliteBackend{db}
}

func (b *sqliteBackend) Write(ctx context.Context, key string, body []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO draft (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		key,
		body,
		time.Now(),
	)
	return err
}

func (b *sqliteBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := b.db.
		QueryRowContext(ctx, "SELECT body FROM draft WHERE key = ?", key).
		Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return body, err
}

func (b *sqliteBackend) Remove(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM draft WHERE key = ?", key)
	return err
}
