// Package draft persists in-progress report state. Persistence is best
// effort: the Store never reports failures to its caller, it logs them.
package draft

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
)

type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// storageKey refuses keys that would not round trip, since two of them can
// render to the same string.
func storageKey(key model.DraftKey) (string, bool) {
	k := key.String()
	if err := key.Validate(); err != nil {
		log.WithField("key", k).Warnf("draft.key: %s", err)
		return k, false
	}
	return k, true
}

// Save overwrites whatever is stored under key.
func (s *Store) Save(ctx context.Context, key model.DraftKey, rec model.DraftRecord) {
	k, ok := storageKey(key)
	if !ok {
		return
	}
	body, err := json.Marshal(rec)
	if err != nil {
		log.WithField("key", k).Warnf("draft.save.marshal: %s", err)
		return
	}
	if err := s.backend.Write(ctx, k, body); err != nil {
		log.WithField("key", k).Warnf("draft.save: %s", err)
		return
	}
	log.WithField("key", k).Debugf("draft.save: %d bytes", len(body))
}

// Load returns false when nothing usable is stored. A record that fails to
// decode is reported as absent; the raw value stays in the backend until the
// next Save overwrites it.
func (s *Store) Load(ctx context.Context, key model.DraftKey) (model.DraftRecord, bool) {
	k, ok := storageKey(key)
	if !ok {
		return model.DraftRecord{}, false
	}
	body, err := s.backend.Read(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.WithField("key", k).Warnf("draft.load: %s", err)
		}
		return model.DraftRecord{}, false
	}

	var rec model.DraftRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		log.WithFields(log.Fields{"key": k, "bytes": len(body)}).Warnf("draft.load.corrupt: %s", err)
		return model.DraftRecord{}, false
	}
	return rec, true
}

func (s *Store) Clear(ctx context.Context, key model.DraftKey) {
	k, ok := storageKey(key)
	if !ok {
		return
	}
	if err := s.backend.Remove(ctx, k); err != nil {
		log.WithField("key", k).Warnf("draft.clear: %s", err)
	}
}
