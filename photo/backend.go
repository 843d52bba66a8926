package photo

import (
	"context"
	"errors"

	"github.com/mbolis/pmdraft/model"
)

var (
	ErrNotFound        = errors.New("photo not found")
	ErrTooLarge        = errors.New("photo too large")
	ErrUnsupportedType = errors.New("unsupported photo type")
	ErrEmpty           = errors.New("empty photo")
)

// Backend stores photo binaries. Put assigns the id and Get returns
// ErrNotFound for unknown ids. Exists reports presence without reading the
// data. Delete and DeleteDraft tolerate missing entries.
type Backend interface {
	Put(ctx context.Context, p model.Photo) (id string, err error)
	Get(ctx context.Context, id string) (model.Photo, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	DeleteDraft(ctx context.Context, draftID string) error
}
