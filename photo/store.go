// Package photo stages photo attachments apart from the textual draft.
// Drafts only hold PhotoRefs; a ref whose photo is gone resolves to nothing.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
)

const DefaultMaxBytes = 10 << 20

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// File is an upload waiting to be stored.
type File struct {
	ContentType string
	Reader      io.Reader
}

type Store struct {
	backend  Backend
	maxBytes int64
}

func NewStore(backend Backend, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{backend: backend, maxBytes: maxBytes}
}

func (s *Store) Put(ctx context.Context, draftID, itemKey string, f File) (model.PhotoRef, error) {
	data, err := io.ReadAll(io.LimitReader(f.Reader, s.maxBytes+1))
	if err != nil {
		return model.PhotoRef{}, fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return model.PhotoRef{}, ErrEmpty
	}
	if int64(len(data)) > s.maxBytes {
		return model.PhotoRef{}, ErrTooLarge
	}

	contentType := normalizeType(f.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeType(http.DetectContentType(data))
	}
	if !allowedTypes[contentType] {
		return model.PhotoRef{}, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	id, err := s.backend.Put(ctx, model.Photo{
		DraftID:     draftID,
		ItemKey:     itemKey,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return model.PhotoRef{}, fmt.Errorf("store photo: %w", err)
	}
	log.WithFields(log.Fields{"draft": draftID, "item": itemKey, "photo": id}).Debugf("photo.put: %d bytes", len(data))
	return model.PhotoRef{ID: id}, nil
}

// Get resolves a reference. NA refs, unknown ids and backend failures all
// resolve to false.
func (s *Store) Get(ctx context.Context, ref model.PhotoRef) (model.Photo, bool) {
	if ref.NA || ref.ID == "" {
		return model.Photo{}, false
	}
	p, err := s.backend.Get(ctx, ref.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithField("photo", ref.ID).Warnf("photo.get: %s", err)
		}
		return model.Photo{}, false
	}
	return p, true
}

// Exists reports whether the binary behind ref is still stored. NA refs are
// never stored. A backend failure is returned as an error, not as absence.
func (s *Store) Exists(ctx context.Context, ref model.PhotoRef) (bool, error) {
	if ref.NA || ref.ID == "" {
		return false, nil
	}
	ok, err := s.backend.Exists(ctx, ref.ID)
	if err != nil {
		return false, fmt.Errorf("stat photo %s: %w", ref.ID, err)
	}
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, ref model.PhotoRef) {
	if ref.NA || ref.ID == "" {
		return
	}
	if err := s.backend.Delete(ctx, ref.ID); err != nil {
		log.WithField("photo", ref.ID).Warnf("photo.delete: %s", err)
	}
}

func (s *Store) ClearForDraft(ctx context.Context, draftID string) {
	if err := s.backend.DeleteDraft(ctx, draftID); err != nil {
		log.WithField("draft", draftID).Warnf("photo.clear_draft: %s", err)
	}
}

func normalizeType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}
