package domain

// TriggerData is the caller-supplied input that starts a run. It is created
// once per run and never mutated afterwards.
type TriggerData struct {
	Query string `json:"query" yaml:"query" mapstructure:"query"`
}

// Field exposes trigger attributes to layered context resolution. The bool
// reports whether the trigger defines the field at all; an empty query is
// still defined (emptiness is a content question, not a resolution one).
func (t TriggerData) Field(name string) (any, bool) {
	switch name {
	case FieldQuery:
		return t.Query, true
	default:
		return nil, false
	}
}

// Values returns the trigger's fields as a mapping.
func (t TriggerData) Values() Values {
	return Values{FieldQuery: t.Query}
}
