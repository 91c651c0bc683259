package repositories

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/upb/waqf-policy-engine/models"
)

// Matches evaluates the filter against a document's top-level fields.
// It mirrors what the SQL stores do with JSON extraction, for stores that
// filter in process.
func (f ListFilter) Matches(doc *models.Document) (bool, error) {
	if len(f.Equals) == 0 && len(f.AtLeast) == 0 {
		return true, nil
	}
	fields, err := doc.Fields()
	if err != nil {
		return false, err
	}
	for field, want := range f.Equals {
		got, ok := renderText(fields[field])
		if !ok || got != want {
			return false, nil
		}
	}
	for field, bound := range f.AtLeast {
		n, ok := fields[field].(json.Number)
		if !ok {
			return false, nil
		}
		v, err := n.Float64()
		if err != nil || math.Floor(v) < float64(bound) {
			return false, nil
		}
	}
	return true, nil
}

// renderText renders a decoded JSON value the way a ->> extraction would.
func renderText(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}
