package form

import (
	"strconv"
	"strings"

	"github.com/mbolis/pmdraft/checklist"
	"github.com/mbolis/pmdraft/model"
)

// PayloadMapper turns a complete record into the backend's body for one
// form type. photos are already resolved and encoded.
type PayloadMapper func(schema model.Schema, rec model.DraftRecord, photos []model.PayloadPhoto) model.Payload

// DefaultMappers returns a fresh registry; callers may replace entries.
func DefaultMappers() map[string]PayloadMapper {
	return map[string]PayloadMapper{
		checklist.AC:      nestedValues,
		checklist.DC:      nestedValues,
		checklist.Charger: nestedValues,
		checklist.CCB:     flatValues,
		checklist.CBBox:   flatValues,
		checklist.Station: stationRows,
	}
}

func basePayload(schema model.Schema, rec model.DraftRecord, photos []model.PayloadPhoto, row func(model.ChecklistItem, model.RowState) map[string]any) model.Payload {
	p := model.Payload{
		FormType:  schema.FormType,
		Head:      rec.Head,
		Rows:      make([]map[string]any, 0, len(schema.Items)),
		Summary:   strings.TrimSpace(rec.Summary),
		SummaryPF: rec.SummaryPF,
		Photos:    photos,
	}
	for _, it := range schema.Items {
		st := rec.Rows[it.Key]
		if rec.IsNA(it.Key) {
			st.PF = model.PFNA
		}
		p.Rows = append(p.Rows, row(it, st))
	}
	return p
}

// nestedValues keeps measurements under "values".
func nestedValues(schema model.Schema, rec model.DraftRecord, photos []model.PayloadPhoto) model.Payload {
	return basePayload(schema, rec, photos, func(it model.ChecklistItem, st model.RowState) map[string]any {
		r := map[string]any{
			"no":     it.No,
			"key":    it.Key,
			"pf":     st.PF,
			"remark": st.Remark,
		}
		if it.Kind == model.KindMeasure && st.PF != model.PFNA {
			values := make(map[string]any, len(it.Fields))
			for _, f := range it.Fields {
				values[f] = number(st.Values[f])
			}
			r["values"] = values
		}
		return r
	})
}

// flatValues puts each measurement next to pf, the layout of the
// hierarchical breaker forms.
func flatValues(schema model.Schema, rec model.DraftRecord, photos []model.PayloadPhoto) model.Payload {
	return basePayload(schema, rec, photos, func(it model.ChecklistItem, st model.RowState) map[string]any {
		r := map[string]any{
			"no":     it.No,
			"key":    it.Key,
			"pf":     st.PF,
			"remark": st.Remark,
		}
		if it.Kind == model.KindMeasure && st.PF != model.PFNA {
			for _, f := range it.Fields {
				r[f] = number(st.Values[f])
			}
		}
		return r
	})
}

func stationRows(schema model.Schema, rec model.DraftRecord, photos []model.PayloadPhoto) model.Payload {
	return basePayload(schema, rec, photos, func(it model.ChecklistItem, st model.RowState) map[string]any {
		r := map[string]any{
			"item":   it.No,
			"status": strings.ToLower(string(st.PF)),
			"remark": st.Remark,
		}
		if it.Kind == model.KindMeasure && st.PF != model.PFNA {
			for _, f := range it.Fields {
				r[f] = number(st.Values[f])
			}
		}
		return r
	})
}

// number sends readings as numbers when they parse, as text otherwise.
func number(s string) any {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
