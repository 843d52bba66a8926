package model

type Kind string

const (
	KindSimple  Kind = "simple"
	KindMeasure Kind = "measure"
)

// RemarkPolicy says when an item needs an inspector remark.
type RemarkPolicy string

const (
	RemarkNever  RemarkPolicy = "never"
	RemarkAlways RemarkPolicy = "always"
	RemarkOnFail RemarkPolicy = "on_fail"
)

type ChecklistItem struct {
	No             int      `json:"no"`
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	Kind           Kind     `json:"kind"`
	HasPhoto       bool     `json:"hasPhoto"`
	Fields         []string `json:"fields,omitempty"`
	RemarkRequired bool     `json:"remarkRequired,omitempty"`
}

type Schema struct {
	FormType string          `json:"formType"`
	Title    string          `json:"title"`
	Remarks  RemarkPolicy    `json:"remarks"`
	Items    []ChecklistItem `json:"items"`
}

// Item looks up a checklist item by key.
func (s Schema) Item(key string) (ChecklistItem, bool) {
	for _, it := range s.Items {
		if it.Key == key {
			return it, true
		}
	}
	return ChecklistItem{}, false
}

// HasField reports whether name is one of the measure sub-fields of the item.
func (it ChecklistItem) HasField(name string) bool {
	for _, f := range it.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// EmptyRecord returns the schema-derived default state of a new report.
func (s Schema) EmptyRecord() DraftRecord {
	rec := DraftRecord{
		Rows:      make(map[string]RowState, len(s.Items)),
		PhotoRefs: map[string][]PhotoRef{},
	}
	for _, it := range s.Items {
		row := RowState{}
		if it.Kind == KindMeasure {
			row.Values = make(map[string]string, len(it.Fields))
			for _, f := range it.Fields {
				row.Values[f] = ""
			}
		}
		rec.Rows[it.Key] = row
	}
	return rec
}
