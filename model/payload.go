package model

// Payload is the JSON body sent to the backend for one report. Field names
// inside Rows are owned by the backend and differ per form type.
type Payload struct {
	FormType  string           `json:"form_type"`
	Head      Head             `json:"head"`
	Rows      []map[string]any `json:"checklist"`
	Summary   string           `json:"summary"`
	SummaryPF PF               `json:"summary_pf"`
	Photos    []PayloadPhoto   `json:"photos,omitempty"`
}

type PayloadPhoto struct {
	ItemKey     string `json:"item"`
	ItemNo      int    `json:"item_no"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}
