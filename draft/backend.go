package draft

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("draft not found")

// Backend is raw keyed storage for serialized drafts. Read returns
// ErrNotFound for absent keys; Remove of an absent key is not an error.
type Backend interface {
	Write(ctx context.Context, key string, body []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}
