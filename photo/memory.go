package photo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mbolis/pmdraft/model"
)

type memoryBackend struct {
	mu     sync.RWMutex
	photos map[string]model.Photo
}

func NewMemoryBackend() Backend {
	return &memoryBackend{photos: make(map[string]model.Photo)}
}

func (b *memoryBackend) Put(_ context.Context, p model.Photo) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p.ID = uuid.NewString()
	p.Data = append([]byte(nil), p.Data...)
	b.photos[p.ID] = p
	return p.ID, nil
}

func (b *memoryBackend) Get(_ context.Context, id string) (model.Photo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.photos[id]
	if !ok {
		return model.Photo{}, ErrNotFound
	}
	p.Data = append([]byte(nil), p.Data...)
	return p, nil
}

func (b *memoryBackend) Exists(_ context.Context, id string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.photos[id]
	return ok, nil
}

func (b *memoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.photos, id)
	return nil
}

func (b *memoryBackend) DeleteDraft(_ context.Context, draftID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, p := range b.photos {
		if p.DraftID == draftID {
			delete(b.photos, id)
		}
	}
	return nil
}
