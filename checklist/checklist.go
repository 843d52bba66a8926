// Package checklist holds the static inspection schemas, one per equipment
// type. Item numbers are permanent ids: never renumber, only append.
package checklist

import (
	"errors"
	"sort"

	"github.com/mbolis/pmdraft/model"
)

const (
	AC      = "ac"
	DC      = "dc"
	CCB     = "ccb"
	CBBox   = "cbbox"
	Station = "station"
	Charger = "charger"
)

var ErrUnknownFormType = errors.New("unknown form type")

var registry = map[string]model.Schema{
	AC:      acSchema,
	DC:      dcSchema,
	CCB:     ccbSchema,
	CBBox:   cbBoxSchema,
	Station: stationSchema,
	Charger: chargerSchema,
}

func Get(formType string) (model.Schema, error) {
	s, ok := registry[formType]
	if !ok {
		return model.Schema{}, ErrUnknownFormType
	}
	return s, nil
}

// Types lists the known form types in lexical order.
func Types() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func simple(no int, key, title string, photo bool) model.ChecklistItem {
	return model.ChecklistItem{No: no, Key: key, Title: title, Kind: model.KindSimple, HasPhoto: photo}
}

func measure(no int, key, title string, photo bool, fields ...string) model.ChecklistItem {
	return model.ChecklistItem{No: no, Key: key, Title: title, Kind: model.KindMeasure, HasPhoto: photo, Fields: fields}
}

func remarked(it model.ChecklistItem) model.ChecklistItem {
	it.RemarkRequired = true
	return it
}

// voltageFields are the ten readings taken on a three phase supply.
var voltageFields = []string{
	"l1_n", "l2_n", "l3_n",
	"l1_l2", "l2_l3", "l3_l1",
	"n_g", "l1_g", "l2_g", "l3_g",
}
