package workflow

import (
	"context"
	"fmt"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/schema"
)

// StepFunc is the unit of work a step performs. It reads its effective input
// from the context store (layered resolution) and returns the output to
// record. Anticipated failure modes must be converted into degraded outputs
// inside the function; a returned error is treated as unexpected and aborts
// the run.
type StepFunc func(ctx context.Context, store *domain.ContextStore) (domain.StepOutput, error)

// Step is one named unit of work in a workflow. The input schema documents
// the fields the step resolves from the context store; it is advisory shape
// information, not an execution gate.
type Step struct {
	ID    string
	Input schema.Schema
	Run   StepFunc
}

// Workflow is an ordered list of steps with a declared trigger shape.
// Steps may only be appended before Commit; afterwards the sequence is
// frozen and the workflow is safe to share across concurrent runs.
type Workflow struct {
	name          string
	triggerSchema schema.Schema
	steps         []Step
	ids           map[string]struct{}
	committed     bool
}

// New starts a workflow definition. The trigger schema declares the shape
// callers are expected to supply; the run driver validates against it but
// degrades rather than aborts on violations.
func New(name string, triggerSchema schema.Schema) *Workflow {
	return &Workflow{
		name:          name,
		triggerSchema: triggerSchema,
		ids:           make(map[string]struct{}),
	}
}

// AddStep appends a step. Steps execute strictly in append order; there is
// no reordering, branching, or conditional skipping.
func (w *Workflow) AddStep(step Step) error {
	if w.committed {
		return fmt.Errorf("%w: cannot add step %q to %q", domain.ErrWorkflowCommitted, step.ID, w.name)
	}
	if step.ID == "" || step.Run == nil {
		return fmt.Errorf("%w: step needs a non-empty id and a run function", domain.ErrInvalidStep)
	}
	if _, dup := w.ids[step.ID]; dup {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateStep, step.ID)
	}
	w.ids[step.ID] = struct{}{}
	w.steps = append(w.steps, step)
	return nil
}

// Commit freezes the step sequence. Committing twice is a no-op.
func (w *Workflow) Commit() {
	w.committed = true
}

// Committed reports whether the step sequence is frozen.
func (w *Workflow) Committed() bool {
	return w.committed
}

// Name returns the workflow's registered name.
func (w *Workflow) Name() string {
	return w.name
}

// TriggerSchema returns the declared trigger shape.
func (w *Workflow) TriggerSchema() schema.Schema {
	return w.triggerSchema
}

// Steps returns the step sequence in execution order. The slice is a copy;
// the underlying sequence cannot be mutated through it.
func (w *Workflow) Steps() []Step {
	out := make([]Step, len(w.steps))
	copy(out, w.steps)
	return out
}

// Len returns the number of steps.
func (w *Workflow) Len() int {
	return len(w.steps)
}
