package form

import (
	"errors"

	"github.com/mbolis/pmdraft/model"
)

var (
	ErrSubmitted    = errors.New("report already submitted")
	ErrDiscarded    = errors.New("draft discarded")
	ErrBusy         = errors.New("submission in progress")
	ErrIncomplete   = errors.New("report incomplete")
	ErrUnknownItem  = errors.New("unknown checklist item")
	ErrUnknownField = errors.New("unknown measurement field")
	ErrInvalidPF    = errors.New("invalid PASS/FAIL/NA value")
)

// IncompleteError carries the report that blocked a submission.
type IncompleteError struct {
	Report model.CompletionReport
}

func (e *IncompleteError) Error() string {
	return ErrIncomplete.Error()
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}
