package domain

import "fmt"

// Source identifies the context layer that supplied a resolved value.
type Source int

const (
	// SourceNone is the missing-value sentinel: no layer supplied the field.
	// Callers must handle it explicitly; it never stands in for a valid value.
	SourceNone Source = iota
	SourceTrigger
	SourcePrevious
	SourceOverride
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourcePrevious:
		return "previous"
	case SourceTrigger:
		return "trigger"
	default:
		return "none"
	}
}

// ContextStore is the per-run aggregate of everything a step may read:
// the trigger data, caller-supplied per-step overrides, and the outputs of
// previously executed steps in execution order.
//
// A store belongs to exactly one run and is not safe for concurrent use;
// concurrent runs each own their own instance. Only the run driver mutates
// it, by appending one output after each step completes.
type ContextStore struct {
	trigger   TriggerData
	overrides map[string]Values
	order     []string
	outputs   map[string]Values
	index     map[string]int
}

// NewContextStore seeds a store for a fresh run. Overrides are copied so the
// caller's maps stay untouched.
func NewContextStore(trigger TriggerData, overrides map[string]Values) *ContextStore {
	ov := make(map[string]Values, len(overrides))
	for id, vals := range overrides {
		ov[id] = vals.Clone()
	}
	return &ContextStore{
		trigger:   trigger,
		overrides: ov,
		outputs:   make(map[string]Values),
		index:     make(map[string]int),
	}
}

// Trigger returns the run's trigger data.
func (c *ContextStore) Trigger() TriggerData {
	return c.trigger
}

// Override returns the caller-supplied override for a step, if any.
func (c *ContextStore) Override(stepID string) (Values, bool) {
	vals, ok := c.overrides[stepID]
	return vals, ok
}

// Append records a step's output. Outputs are write-once per step id.
func (c *ContextStore) Append(stepID string, out Values) error {
	if _, dup := c.outputs[stepID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateOutput, stepID)
	}
	c.index[stepID] = len(c.order)
	c.order = append(c.order, stepID)
	c.outputs[stepID] = out.Clone()
	return nil
}

// Output returns the recorded output of a step.
func (c *ContextStore) Output(stepID string) (Values, bool) {
	vals, ok := c.outputs[stepID]
	return vals, ok
}

// StepIDs returns the ids of executed steps in execution order.
func (c *ContextStore) StepIDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Final returns the output of the most recently executed step.
func (c *ContextStore) Final() (Values, bool) {
	if len(c.order) == 0 {
		return nil, false
	}
	return c.outputs[c.order[len(c.order)-1]], true
}

// previous locates the output of the step executed immediately before the
// given one. A step never sees its own output, even if resolution happens
// after it was recorded.
func (c *ContextStore) previous(stepID string) (Values, bool) {
	idx := len(c.order) - 1
	if pos, ok := c.index[stepID]; ok {
		idx = pos - 1
	}
	if idx < 0 {
		return nil, false
	}
	return c.outputs[c.order[idx]], true
}

// Resolve produces the effective input value for a step's field by checking
// layers in fixed precedence order: per-step override, then the immediately
// preceding step's output, then trigger data. If no layer supplies the field
// it returns (nil, SourceNone).
//
// Resolution is a pure read. Presence is key-existence: a layer supplying an
// empty value still wins resolution, and emptiness is left to the step.
func (c *ContextStore) Resolve(stepID, field string) (any, Source) {
	if ov, ok := c.overrides[stepID]; ok {
		if val, ok := ov[field]; ok {
			return val, SourceOverride
		}
	}
	if prev, ok := c.previous(stepID); ok {
		if val, ok := prev[field]; ok {
			return val, SourcePrevious
		}
	}
	if val, ok := c.trigger.Field(field); ok {
		return val, SourceTrigger
	}
	return nil, SourceNone
}

// ResolveString is Resolve for string-typed fields. Present non-string
// values are stringified rather than dropped.
func (c *ContextStore) ResolveString(stepID, field string) (string, Source) {
	val, src := c.Resolve(stepID, field)
	if src == SourceNone {
		return "", SourceNone
	}
	if s, ok := val.(string); ok {
		return s, src
	}
	return fmt.Sprint(val), src
}
