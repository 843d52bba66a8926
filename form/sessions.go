package form

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
)

// session is a registry slot. ready is closed once Open returned, c and err
// are read only after that.
type session struct {
	ready    chan struct{}
	c        *Controller
	err      error
	lastUsed time.Time
}

// Sessions keeps one controller per open draft key. Drafts are opened outside
// the registry lock, so a slow open only holds up requests for its own key.
type Sessions struct {
	deps  Deps
	clock clock.Clock

	mu   sync.Mutex
	open map[string]*session
}

func NewSessions(deps Deps) *Sessions {
	c := deps.Clock
	if c == nil {
		c = clock.New()
	}
	return &Sessions{deps: deps, clock: c, open: map[string]*session{}}
}

// Get returns the open controller for key, opening it if needed. A
// controller that was submitted or discarded is replaced by a fresh one.
func (s *Sessions) Get(ctx context.Context, key model.DraftKey) (*Controller, error) {
	id := key.String()
	for {
		s.mu.Lock()
		e, ok := s.open[id]
		if !ok {
			e = &session{ready: make(chan struct{}), lastUsed: s.clock.Now()}
			s.open[id] = e
			s.mu.Unlock()

			e.c, e.err = Open(ctx, s.deps, key)
			close(e.ready)
			if e.err != nil {
				s.forget(id, e)
				return nil, e.err
			}
			return e.c, nil
		}
		e.lastUsed = s.clock.Now()
		s.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if e.err == nil && !e.c.Done() {
			return e.c, nil
		}
		s.forget(id, e)
	}
}

// forget drops the slot of id, unless it was already replaced.
func (s *Sessions) forget(id string, e *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open[id] == e {
		delete(s.open, id)
	}
}

// Close unmounts one draft. Closing a key that is not open is a no-op.
func (s *Sessions) Close(ctx context.Context, key model.DraftKey) {
	s.mu.Lock()
	e, ok := s.open[key.String()]
	delete(s.open, key.String())
	s.mu.Unlock()

	if ok {
		e.close(ctx)
	}
}

// CloseAll flushes every open draft.
func (s *Sessions) CloseAll(ctx context.Context) {
	s.mu.Lock()
	open := s.open
	s.open = map[string]*session{}
	s.mu.Unlock()

	for _, e := range open {
		e.close(ctx)
	}
}

// Evict flushes and forgets the drafts nobody asked for since maxIdle. It
// returns how many were evicted.
func (s *Sessions) Evict(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.clock.Now().Add(-maxIdle)

	s.mu.Lock()
	var idle []*session
	for id, e := range s.open {
		if !e.lastUsed.Before(cutoff) || !e.settled() {
			continue
		}
		if e.err == nil && e.c.State() == StateSubmitting {
			continue
		}
		idle = append(idle, e)
		delete(s.open, id)
	}
	s.mu.Unlock()

	for _, e := range idle {
		e.close(ctx)
	}
	return len(idle)
}

// Run evicts idle drafts until ctx is done.
func (s *Sessions) Run(ctx context.Context, maxIdle time.Duration) {
	every := maxIdle / 2
	if every < time.Second {
		every = time.Second
	}
	t := s.clock.Ticker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Evict(ctx, maxIdle); n > 0 {
				log.Debugf("form.sessions.evict: %d idle drafts unmounted", n)
			}
		}
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.open)
}

func (e *session) settled() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

func (e *session) close(ctx context.Context) {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return
	}
	if e.err == nil {
		e.c.Close(ctx)
	}
}
