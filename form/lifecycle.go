package form

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/mbolis/pmdraft/log"
)

const (
	StateInitializing = "initializing"
	StateEditing      = "editing"
	StateSubmitting   = "submitting"
	StateSubmitted    = "submitted"
	StateDiscarded    = "discarded"
)

const (
	EventLoaded       = "loaded"
	EventSubmit       = "submit"
	EventSubmitFailed = "submit_failed"
	EventSubmitDone   = "submit_done"
	EventDiscard      = "discard"
)

func newLifecycle(key string) *fsm.FSM {
	return fsm.NewFSM(
		StateInitializing,
		fsm.Events{
			{Name: EventLoaded, Src: []string{StateInitializing}, Dst: StateEditing},
			{Name: EventSubmit, Src: []string{StateEditing}, Dst: StateSubmitting},
			{Name: EventSubmitFailed, Src: []string{StateSubmitting}, Dst: StateEditing},
			{Name: EventSubmitDone, Src: []string{StateSubmitting}, Dst: StateSubmitted},
			{Name: EventDiscard, Src: []string{StateEditing}, Dst: StateDiscarded},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.WithField("key", key).Debugf("form.state: %s -> %s", e.Src, e.Dst)
			},
		},
	)
}
