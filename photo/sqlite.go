package photo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/mbolis/pmdraft/model"
)

type sqliteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(db *sql.DB) Backend {
	return &sqliteBackend{db}
}

func (b *sqliteBackend) Put(ctx context.Context, p model.Photo) (string, error) {
	id := uuid.NewString()
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO photo (id, draft_id, item_key, content_type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		p.DraftID,
		p.ItemKey,
		p.ContentType,
		p.Data,
		p.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (b *sqliteBackend) Get(ctx context.Context, id string) (model.Photo, error) {
	p := model.Photo{ID: id}
	err := b.db.
		QueryRowContext(ctx, `
			SELECT draft_id, item_key, content_type, data, created_at
			FROM photo
			WHERE id = ?`,
			id,
		).
		Scan(&p.DraftID, &p.ItemKey, &p.ContentType, &p.Data, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Photo{}, ErrNotFound
	}
	if err != nil {
		return model.Photo{}, err
	}
	return p, nil
}

func (b *sqliteBackend) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photo WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *sqliteBackend) Delete(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM photo WHERE id = ?", id)
	return err
}

func (b *sqliteBackend) DeleteDraft(ctx context.Context, draftID string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM photo WHERE draft_id = ?", draftID)
	return err
}
