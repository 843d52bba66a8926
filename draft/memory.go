package draft

import (
	"context"
	"sync"
)

type memoryBackend struct {
	mu     sync.RWMutex
	drafts map[string][]byte
}

func NewMemoryBackend() Backend {
	return &memoryBackend{drafts: make(map[string][]byte)}
}

func (b *memoryBackend) Write(_ context.Context, key string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.drafts[key] = append([]byte(nil), body...)
	return nil
}

func (b *memoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	body, ok := b.drafts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

func (b *memoryBackend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.drafts, key)
	return nil
}
