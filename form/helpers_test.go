package form_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mbolis/pmdraft/draft"
	"github.com/mbolis/pmdraft/form"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/photo"
)

// countingBackend counts the draft writes that reach storage.
type countingBackend struct {
	draft.Backend
	writes atomic.Int32
}

func (b *countingBackend) Write(ctx context.Context, key string, body []byte) error {
	b.writes.Add(1)
	return b.Backend.Write(ctx, key, body)
}

type fakeSubmitter struct {
	mu       sync.Mutex
	err      error
	payloads []model.Payload
}

func (s *fakeSubmitter) Submit(_ context.Context, _ string, p model.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.payloads = append(s.payloads, p)
	return s.err
}

func (s *fakeSubmitter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.payloads)
}

func (s *fakeSubmitter) last() model.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.payloads[len(s.payloads)-1]
}

type fakeLookup struct {
	heads map[string]model.Head
}

func (l fakeLookup) Station(_ context.Context, id string) (model.Head, error) {
	h, ok := l.heads[id]
	if !ok {
		return model.Head{}, errors.New("station not found")
	}
	return h, nil
}

// blockingLookup hangs on one station until release is closed.
type blockingLookup struct {
	station string
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingLookup(station string) *blockingLookup {
	return &blockingLookup{station: station, started: make(chan struct{}), release: make(chan struct{})}
}

func (l *blockingLookup) Station(ctx context.Context, id string) (model.Head, error) {
	if id != l.station {
		return model.Head{}, errors.New("station not found")
	}
	l.once.Do(func() { close(l.started) })
	select {
	case <-l.release:
		return model.Head{StationName: id}, nil
	case <-ctx.Done():
		return model.Head{}, ctx.Err()
	}
}

func png() photo.File {
	return photo.File{
		ContentType: "image/png",
		Reader:      bytes.NewReader([]byte("\x89PNG\r\n\x1a\nnot really a picture")),
	}
}

// fillComplete answers every item of the controller's schema so that the
// report becomes complete under any remark policy.
func fillComplete(ctx context.Context, c *form.Controller) error {
	for _, it := range c.Schema().Items {
		if it.Kind == model.KindMeasure {
			values := map[string]string{}
			for _, f := range it.Fields {
				values[f] = "1.5"
			}
			if _, err := c.SetValues(it.Key, values); err != nil {
				return err
			}
		}
		if _, err := c.SetPF(it.Key, model.PFPass); err != nil {
			return err
		}
		if _, err := c.SetRemark(it.Key, "checked"); err != nil {
			return err
		}
		if it.HasPhoto {
			if _, _, err := c.AttachPhoto(ctx, it.Key, png()); err != nil {
				return err
			}
		}
	}
	if _, err := c.SetSummary("all fine"); err != nil {
		return err
	}
	_, err := c.SetSummaryPF(model.PFPass)
	return err
}
