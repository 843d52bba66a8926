package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultKeyPrefix     = "pmDraft"
	DefaultSchemaVersion = "v2"
	UnknownStation       = "unknown"
	DefaultDraft         = "default"
)

var ErrMalformedKey = errors.New("malformed draft key")

// DraftKey addresses one draft. The schema version segment is how old
// drafts are invalidated: a key built with a newer version never sees them.
type DraftKey struct {
	Prefix    string
	Version   string
	FormType  string
	StationID string
	DraftID   string
}

// NewDraftKey builds a key with the default prefix and schema version. None
// of the ids may contain ':', which separates the segments of String; such a
// key fails Validate and is refused by the stores.
func NewDraftKey(formType, stationID, draftID string) DraftKey {
	return DraftKey{
		Prefix:    DefaultKeyPrefix,
		Version:   DefaultSchemaVersion,
		FormType:  formType,
		StationID: stationID,
		DraftID:   draftID,
	}
}

// String renders "<prefix>:<version>:<form-type>:<station>:<draft>".
func (k DraftKey) String() string {
	prefix := k.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	version := k.Version
	if version == "" {
		version = DefaultSchemaVersion
	}
	station := k.StationID
	if station == "" {
		station = UnknownStation
	}
	draft := k.DraftID
	if draft == "" {
		draft = DefaultDraft
	}
	return strings.Join([]string{prefix, version, k.FormType, station, draft}, ":")
}

// Validate reports ErrMalformedKey when String would not parse back into k.
func (k DraftKey) Validate() error {
	if k.FormType == "" {
		return fmt.Errorf("%w: empty form type", ErrMalformedKey)
	}
	for _, part := range []string{k.Prefix, k.Version, k.FormType, k.StationID, k.DraftID} {
		if strings.Contains(part, ":") {
			return fmt.Errorf("%w: %q contains ':'", ErrMalformedKey, part)
		}
	}
	return nil
}

func ParseDraftKey(s string) (DraftKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 {
		return DraftKey{}, ErrMalformedKey
	}
	for _, p := range parts {
		if p == "" {
			return DraftKey{}, ErrMalformedKey
		}
	}
	return DraftKey{
		Prefix:    parts[0],
		Version:   parts[1],
		FormType:  parts[2],
		StationID: parts[3],
		DraftID:   parts[4],
	}, nil
}

// PF is the tri-state inspection outcome. The zero value is "unset".
type PF string

const (
	PFUnset PF = ""
	PFPass  PF = "PASS"
	PFFail  PF = "FAIL"
	PFNA    PF = "NA"
)

func (pf PF) Valid() bool {
	switch pf {
	case PFUnset, PFPass, PFFail, PFNA:
		return true
	}
	return false
}

type RowState struct {
	PF     PF                `json:"pf,omitempty"`
	Remark string            `json:"remark,omitempty"`
	Values map[string]string `json:"values"`
}

type Head struct {
	IssueID        string `json:"issue_id,omitempty"`
	InspectionDate string `json:"inspection_date,omitempty"`
	Location       string `json:"location,omitempty"`
	StationName    string `json:"station_name,omitempty"`
	EquipmentID    string `json:"equipment_id,omitempty"`
	SerialNo       string `json:"serial_no,omitempty"`
	Inspector      string `json:"inspector,omitempty"`
}

// PhotoRef is a weak reference into the photo store. An NA ref marks the
// item as not applicable and carries no binary.
type PhotoRef struct {
	ID string `json:"id,omitempty"`
	NA bool   `json:"na,omitempty"`
}

type DraftRecord struct {
	Head      Head                  `json:"head"`
	Rows      map[string]RowState   `json:"rows"`
	Summary   string                `json:"summary"`
	SummaryPF PF                    `json:"summary_pf"`
	PhotoRefs map[string][]PhotoRef `json:"photoRefs"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
}

// IsNA reports whether the item has been marked not applicable, either
// through its PF selection or through an NA photo slot.
func (r DraftRecord) IsNA(itemKey string) bool {
	if r.Rows[itemKey].PF == PFNA {
		return true
	}
	for _, ref := range r.PhotoRefs[itemKey] {
		if ref.NA {
			return true
		}
	}
	return false
}

// Photos returns the real (non NA) photo references of an item.
func (r DraftRecord) Photos(itemKey string) []PhotoRef {
	var refs []PhotoRef
	for _, ref := range r.PhotoRefs[itemKey] {
		if !ref.NA && ref.ID != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

type Photo struct {
	ID          string
	DraftID     string
	ItemKey     string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
