package domain

import "fmt"

// Known context field names. Steps and resolution address fields through
// these constants rather than free-form strings, so the set of fields
// flowing through a pipeline stays auditable.
const (
	FieldQuery  = "query"
	FieldAnswer = "answer"
)

// Values is a tagged mapping of named fields produced or consumed by steps.
// It is the unit of exchange between trigger data, step overrides and step
// outputs.
type Values map[string]any

// GetString returns the named field as a string. The second return reports
// whether the field is present; a present non-string value is stringified
// rather than rejected.
func (v Values) GetString(name string) (string, bool) {
	raw, ok := v[name]
	if !ok {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	return fmt.Sprint(raw), true
}

// Has reports whether the field is present. Presence is key-existence:
// an empty or zero value is still present.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Clone returns an independent copy. Nested maps are copied one level deep,
// which covers the shapes steps exchange in practice.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		if nested, ok := val.(map[string]any); ok {
			val = map[string]any(Values(nested).Clone())
		}
		out[k] = val
	}
	return out
}
