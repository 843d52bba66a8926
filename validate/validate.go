// Package validate decides whether a draft may be submitted. Everything here
// is pure: the report depends on the schema and the record only.
package validate

import (
	"strings"

	"github.com/mbolis/pmdraft/model"
)

type itemResult struct {
	photo, input, remark, pf bool
}

func (r itemResult) ok() bool {
	return !r.photo && !r.input && !r.remark && !r.pf
}

// Evaluate lists, in schema order, every item still missing something.
// An item marked N/A is complete whatever else it holds.
func Evaluate(schema model.Schema, rec model.DraftRecord) model.CompletionReport {
	report := model.CompletionReport{
		MissingPhoto:  []string{},
		MissingInput:  []string{},
		MissingRemark: []string{},
		MissingPF:     []string{},
	}

	for _, it := range schema.Items {
		res := checkItem(schema.Remarks, it, rec)
		if res.photo {
			report.MissingPhoto = append(report.MissingPhoto, it.Key)
		}
		if res.input {
			report.MissingInput = append(report.MissingInput, it.Key)
		}
		if res.remark {
			report.MissingRemark = append(report.MissingRemark, it.Key)
		}
		if res.pf {
			report.MissingPF = append(report.MissingPF, it.Key)
		}
	}

	report.MissingSummary = blank(rec.Summary)
	report.MissingSummaryPF = !selected(rec.SummaryPF)
	report.IsComplete = len(report.MissingPhoto) == 0 &&
		len(report.MissingInput) == 0 &&
		len(report.MissingRemark) == 0 &&
		len(report.MissingPF) == 0 &&
		!report.MissingSummary &&
		!report.MissingSummaryPF
	return report
}

// Progress counts the items with nothing missing.
func Progress(schema model.Schema, rec model.DraftRecord) (done, total int) {
	for _, it := range schema.Items {
		if checkItem(schema.Remarks, it, rec).ok() {
			done++
		}
	}
	return done, len(schema.Items)
}

func checkItem(policy model.RemarkPolicy, it model.ChecklistItem, rec model.DraftRecord) (res itemResult) {
	if rec.IsNA(it.Key) {
		return
	}
	row := rec.Rows[it.Key]

	if it.HasPhoto {
		res.photo = len(rec.Photos(it.Key)) == 0
	}

	switch it.Kind {
	case model.KindSimple:
	case model.KindMeasure:
		for _, f := range it.Fields {
			if blank(row.Values[f]) {
				res.input = true
				break
			}
		}
	default:
		// an item of unknown kind can never be answered
		res.input = true
	}

	if remarkRequired(policy, it, row) {
		res.remark = blank(row.Remark)
	}
	res.pf = !selected(row.PF)
	return
}

func remarkRequired(policy model.RemarkPolicy, it model.ChecklistItem, row model.RowState) bool {
	if it.RemarkRequired {
		return true
	}
	switch policy {
	case model.RemarkAlways:
		return true
	case model.RemarkOnFail:
		return row.PF == model.PFFail
	}
	return false
}

func selected(pf model.PF) bool {
	return pf != model.PFUnset && pf.Valid()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
