package form

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/looplab/fsm"
	"github.com/tiendc/go-deepcopy"

	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/draft"
	"github.com/mbolis/pmdraft/log"
	"github.com/mbolis/pmdraft/model"
	"github.com/mbolis/pmdraft/photo"
	"github.com/mbolis/pmdraft/validate"
)

type Submitter interface {
	Submit(ctx context.Context, formType string, payload model.Payload) error
}

// StationLookup prefills the report head of a brand new draft.
type StationLookup interface {
	Station(ctx context.Context, stationID string) (model.Head, error)
}

type Deps struct {
	Drafts    *draft.Store
	Photos    *photo.Store
	Submitter Submitter
	Lookup    StationLookup // optional
	Mappers   map[string]PayloadMapper
	Clock     clock.Clock
	Debounce  time.Duration
}

// Snapshot is a deep copy of a controller's state, safe to hand out.
type Snapshot struct {
	State  string                 `json:"state"`
	Record model.DraftRecord      `json:"record"`
	Report model.CompletionReport `json:"report"`
	Done   int                    `json:"done"`
	Total  int                    `json:"total"`
}

// Controller owns one draft: every read and write of it goes through the
// controller mutex, including the debounced save.
type Controller struct {
	key    model.DraftKey
	schema model.Schema
	deps   Deps
	saver  *Debouncer

	mu     sync.Mutex
	fsm    *fsm.FSM
	rec    model.DraftRecord
	report model.CompletionReport
}

// Open hydrates the draft stored under key, or starts an empty one.
func Open(ctx context.Context, deps Deps, key model.DraftKey) (*Controller, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	schema, err := checklist.Get(key.FormType)
	if err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Mappers == nil {
		deps.Mappers = DefaultMappers()
	}

	c := &Controller{
		key:    key,
		schema: schema,
		deps:   deps,
		fsm:    newLifecycle(key.String()),
	}
	c.saver = NewDebouncer(deps.Clock, deps.Debounce, c.persist)

	pruned := false
	if rec, ok := deps.Drafts.Load(ctx, key); ok {
		c.rec = hydrate(schema, rec)
		if pruned, err = c.pruneMissing(ctx); err != nil {
			log.WithField("key", key.String()).Warnf("form.open.photos: %s", err)
		}
	} else {
		c.rec = schema.EmptyRecord()
		c.prefill(ctx)
	}
	c.report = validate.Evaluate(schema, c.rec)

	if err := c.fsm.Event(ctx, EventLoaded); err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	if pruned {
		c.saver.Trigger()
	}
	return c, nil
}

// hydrate fills in what an older or partial draft may lack.
func hydrate(schema model.Schema, rec model.DraftRecord) model.DraftRecord {
	empty := schema.EmptyRecord()
	if rec.Rows == nil {
		rec.Rows = map[string]model.RowState{}
	}
	if rec.PhotoRefs == nil {
		rec.PhotoRefs = map[string][]model.PhotoRef{}
	}
	for key, fresh := range empty.Rows {
		row, ok := rec.Rows[key]
		if !ok {
			rec.Rows[key] = fresh
			continue
		}
		if fresh.Values != nil && row.Values == nil {
			row.Values = fresh.Values
			rec.Rows[key] = row
		}
	}
	return rec
}

func (c *Controller) prefill(ctx context.Context) {
	if c.deps.Lookup == nil || c.key.StationID == "" || c.key.StationID == model.UnknownStation {
		return
	}
	head, err := c.deps.Lookup.Station(ctx, c.key.StationID)
	if err != nil {
		log.WithField("key", c.key.String()).Warnf("form.prefill: %s", err)
		return
	}
	c.rec.Head = head
}

func (c *Controller) Key() model.DraftKey {
	return c.key
}

func (c *Controller) Schema() model.Schema {
	return c.schema
}

func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fsm.Current()
}

// Done reports whether the controller reached a terminal state.
func (c *Controller) Done() bool {
	switch c.State() {
	case StateSubmitted, StateDiscarded:
		return true
	}
	return false
}

func (c *Controller) Report() model.CompletionReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.copyReport()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{State: c.fsm.Current(), Report: c.copyReport()}
	if err := deepcopy.Copy(&s.Record, c.rec); err != nil {
		log.WithField("key", c.key.String()).Errorf("form.snapshot: %s", err)
	}
	s.Done, s.Total = validate.Progress(c.schema, c.rec)
	return s
}

func (c *Controller) copyReport() model.CompletionReport {
	var r model.CompletionReport
	if err := deepcopy.Copy(&r, c.report); err != nil {
		return c.report
	}
	return r
}

func (c *Controller) editable() error {
	switch c.fsm.Current() {
	case StateEditing:
		return nil
	case StateSubmitting:
		return ErrBusy
	case StateSubmitted:
		return ErrSubmitted
	case StateDiscarded:
		return ErrDiscarded
	}
	return fmt.Errorf("form in state %s", c.fsm.Current())
}

// changed must be called with mu held after every applied mutation.
func (c *Controller) changed() Snapshot {
	now := c.deps.Clock.Now().UTC()
	c.rec.UpdatedAt = &now
	c.report = validate.Evaluate(c.schema, c.rec)
	c.saver.Trigger()
	return c.snapshot()
}

func (c *Controller) editRow(itemKey string, apply func(it model.ChecklistItem, row *model.RowState) error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	it, ok := c.schema.Item(itemKey)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemKey)
	}
	row := c.rec.Rows[itemKey]
	if err := apply(it, &row); err != nil {
		return Snapshot{}, err
	}
	c.rec.Rows[itemKey] = row
	return c.changed(), nil
}

// RowPatch carries the parts of a row to overwrite; nil parts are kept.
type RowPatch struct {
	PF     *model.PF         `json:"pf"`
	Remark *string           `json:"remark"`
	Values map[string]string `json:"values"`
}

// PatchRow applies the whole patch or, when any part is invalid, nothing.
func (c *Controller) PatchRow(itemKey string, patch RowPatch) (Snapshot, error) {
	return c.editRow(itemKey, func(it model.ChecklistItem, row *model.RowState) error {
		for field := range patch.Values {
			if !it.HasField(field) {
				return fmt.Errorf("%w: %s.%s", ErrUnknownField, itemKey, field)
			}
		}
		if patch.PF != nil && !patch.PF.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPF, *patch.PF)
		}

		if len(patch.Values) > 0 {
			values := make(map[string]string, len(it.Fields))
			for field, v := range row.Values {
				values[field] = v
			}
			for field, v := range patch.Values {
				values[field] = v
			}
			row.Values = values
		}
		if patch.PF != nil {
			row.PF = *patch.PF
		}
		if patch.Remark != nil {
			row.Remark = *patch.Remark
		}
		return nil
	})
}

func (c *Controller) SetPF(itemKey string, pf model.PF) (Snapshot, error) {
	return c.PatchRow(itemKey, RowPatch{PF: &pf})
}

func (c *Controller) SetRemark(itemKey, remark string) (Snapshot, error) {
	return c.PatchRow(itemKey, RowPatch{Remark: &remark})
}

func (c *Controller) SetValue(itemKey, field, value string) (Snapshot, error) {
	return c.SetValues(itemKey, map[string]string{field: value})
}

// SetValues writes several readings of a measure item at once. Nothing is
// applied if any field is unknown.
func (c *Controller) SetValues(itemKey string, values map[string]string) (Snapshot, error) {
	return c.PatchRow(itemKey, RowPatch{Values: values})
}

// MarkNA sets or clears the NA slot of an item. Real photos stay attached
// so that clearing NA gives them back.
func (c *Controller) MarkNA(itemKey string, na bool) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	if _, ok := c.schema.Item(itemKey); !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemKey)
	}

	refs := make([]model.PhotoRef, 0, len(c.rec.PhotoRefs[itemKey])+1)
	for _, ref := range c.rec.PhotoRefs[itemKey] {
		if !ref.NA {
			refs = append(refs, ref)
		}
	}
	row := c.rec.Rows[itemKey]
	if na {
		refs = append(refs, model.PhotoRef{NA: true})
		row.PF = model.PFNA
	} else if row.PF == model.PFNA {
		row.PF = model.PFUnset
	}
	c.rec.PhotoRefs[itemKey] = refs
	c.rec.Rows[itemKey] = row
	return c.changed(), nil
}

func (c *Controller) SetHead(head model.Head) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	c.rec.Head = head
	return c.changed(), nil
}

func (c *Controller) SetSummary(summary string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	c.rec.Summary = summary
	return c.changed(), nil
}

func (c *Controller) SetSummaryPF(pf model.PF) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	if !pf.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidPF, pf)
	}
	c.rec.SummaryPF = pf
	return c.changed(), nil
}

// AttachPhoto stores the binary first and records its reference only on
// success; a failed upload leaves the draft untouched.
func (c *Controller) AttachPhoto(ctx context.Context, itemKey string, f photo.File) (model.PhotoRef, Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return model.PhotoRef{}, Snapshot{}, err
	}
	if _, ok := c.schema.Item(itemKey); !ok {
		return model.PhotoRef{}, Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemKey)
	}
	ref, err := c.deps.Photos.Put(ctx, c.key.String(), itemKey, f)
	if err != nil {
		return model.PhotoRef{}, Snapshot{}, err
	}
	c.rec.PhotoRefs[itemKey] = append(c.rec.PhotoRefs[itemKey], ref)
	return ref, c.changed(), nil
}

// RemovePhoto drops a reference and its binary. Unknown ids are a no-op.
func (c *Controller) RemovePhoto(ctx context.Context, itemKey, id string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return Snapshot{}, err
	}
	if _, ok := c.schema.Item(itemKey); !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemKey)
	}

	refs := c.rec.PhotoRefs[itemKey]
	kept := make([]model.PhotoRef, 0, len(refs))
	var removed *model.PhotoRef
	for i, ref := range refs {
		if !ref.NA && ref.ID == id && removed == nil {
			removed = &refs[i]
			continue
		}
		kept = append(kept, ref)
	}
	if removed == nil {
		return c.snapshot(), nil
	}
	c.deps.Photos.Delete(ctx, *removed)
	c.rec.PhotoRefs[itemKey] = kept
	return c.changed(), nil
}

// Photo returns a photo only if it is attached to itemKey of this draft.
func (c *Controller) Photo(ctx context.Context, itemKey, id string) (model.Photo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ref := range c.rec.Photos(itemKey) {
		if ref.ID == id {
			return c.deps.Photos.Get(ctx, ref)
		}
	}
	return model.Photo{}, false
}

// persist is the debounced task.
func (c *Controller) persist() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.fsm.Current() {
	case StateSubmitted, StateDiscarded:
		return
	}
	c.deps.Drafts.Save(context.Background(), c.key, c.rec)
}

// Close flushes a pending save. The controller stays usable.
func (c *Controller) Close(ctx context.Context) {
	c.saver.Flush()
}

// Submit sends a complete report. The lock is released while the backend
// is called; edits arriving meanwhile get ErrBusy.
func (c *Controller) Submit(ctx context.Context) (model.CompletionReport, error) {
	c.mu.Lock()
	if err := c.editable(); err != nil {
		c.mu.Unlock()
		return model.CompletionReport{}, err
	}
	pruned, err := c.pruneMissing(ctx)
	if err != nil {
		c.mu.Unlock()
		return c.copyReport(), fmt.Errorf("submit %s: %w", c.key.FormType, err)
	}
	if pruned {
		c.changed()
	}
	report := validate.Evaluate(c.schema, c.rec)
	c.report = report
	if !report.IsComplete {
		c.mu.Unlock()
		return report, &IncompleteError{Report: report}
	}
	mapper, ok := c.deps.Mappers[c.key.FormType]
	if !ok {
		c.mu.Unlock()
		return report, fmt.Errorf("no payload mapper for %s", c.key.FormType)
	}
	photos, err := c.resolvePhotos(ctx)
	if err != nil {
		c.mu.Unlock()
		return report, fmt.Errorf("submit %s: %w", c.key.FormType, err)
	}
	if err := c.fsm.Event(ctx, EventSubmit); err != nil {
		c.mu.Unlock()
		return report, err
	}
	payload := mapper(c.schema, c.rec, photos)
	c.mu.Unlock()

	err = c.deps.Submitter.Submit(ctx, c.key.FormType, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	l := log.WithField("key", c.key.String())
	if err != nil {
		l.Warnf("form.submit: %s", err)
		if ferr := c.fsm.Event(ctx, EventSubmitFailed); ferr != nil {
			l.Errorf("form.submit.fsm: %s", ferr)
		}
		return report, fmt.Errorf("submit %s: %w", c.key.FormType, err)
	}

	c.saver.Stop()
	c.deps.Drafts.Clear(ctx, c.key)
	c.deps.Photos.ClearForDraft(ctx, c.key.String())
	if ferr := c.fsm.Event(ctx, EventSubmitDone); ferr != nil {
		l.Errorf("form.submit.fsm: %s", ferr)
	}
	l.Infof("form.submit: %s report submitted", c.key.FormType)
	return report, nil
}

// pruneMissing must be called with mu held. It drops the refs whose binary
// is gone, so that the report counts those items as missing a photo.
func (c *Controller) pruneMissing(ctx context.Context) (bool, error) {
	pruned := false
	for itemKey, refs := range c.rec.PhotoRefs {
		kept := make([]model.PhotoRef, 0, len(refs))
		for _, ref := range refs {
			if !ref.NA {
				ok, err := c.deps.Photos.Exists(ctx, ref)
				if err != nil {
					return pruned, err
				}
				if !ok {
					log.WithFields(log.Fields{"key": c.key.String(), "photo": ref.ID}).Warn("form.photos: binary gone, ref dropped")
					pruned = true
					continue
				}
			}
			kept = append(kept, ref)
		}
		if len(kept) != len(refs) {
			c.rec.PhotoRefs[itemKey] = kept
		}
	}
	return pruned, nil
}

// resolvePhotos must be called with mu held, after pruneMissing.
func (c *Controller) resolvePhotos(ctx context.Context) ([]model.PayloadPhoto, error) {
	var out []model.PayloadPhoto
	for _, it := range c.schema.Items {
		if c.rec.IsNA(it.Key) {
			continue
		}
		for _, ref := range c.rec.Photos(it.Key) {
			p, ok := c.deps.Photos.Get(ctx, ref)
			if !ok {
				return nil, fmt.Errorf("photo %s of %s unreadable", ref.ID, it.Key)
			}
			out = append(out, model.PayloadPhoto{
				ItemKey:     it.Key,
				ItemNo:      it.No,
				ContentType: p.ContentType,
				Data:        base64.StdEncoding.EncodeToString(p.Data),
			})
		}
	}
	return out, nil
}

// Discard throws the draft and its photos away.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editable(); err != nil {
		return err
	}
	c.saver.Stop()
	c.deps.Drafts.Clear(ctx, c.key)
	c.deps.Photos.ClearForDraft(ctx, c.key.String())
	return c.fsm.Event(ctx, EventDiscard)
}
