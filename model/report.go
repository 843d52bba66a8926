package model

import (
	"fmt"
	"strings"
)

type CompletionReport struct {
	MissingPhoto     []string `json:"missingPhoto"`
	MissingInput     []string `json:"missingInput"`
	MissingRemark    []string `json:"missingRemark"`
	MissingPF        []string `json:"missingPF"`
	MissingSummary   bool     `json:"missingSummary"`
	MissingSummaryPF bool     `json:"missingSummaryPF"`
	IsComplete       bool     `json:"isComplete"`
}

// Messages renders the report as the list shown next to a disabled submit button.
func (r CompletionReport) Messages() []string {
	var msgs []string
	add := func(what string, keys []string) {
		if len(keys) > 0 {
			msgs = append(msgs, fmt.Sprintf("%s: %s", what, strings.Join(keys, ", ")))
		}
	}
	add("missing photo", r.MissingPhoto)
	add("missing input", r.MissingInput)
	add("missing remark", r.MissingRemark)
	add("missing PASS/FAIL/NA", r.MissingPF)
	if r.MissingSummary {
		msgs = append(msgs, "missing summary")
	}
	if r.MissingSummaryPF {
		msgs = append(msgs, "missing summary PASS/FAIL/NA")
	}
	return msgs
}
