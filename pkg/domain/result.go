package domain

import "time"

// StepReport summarizes one step's execution within a run.
type StepReport struct {
	StepID   string        `json:"step_id"`
	Status   StepStatus    `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
	Output   Values        `json:"output,omitempty"`
}

// RunResult is the outcome of driving a workflow once. Success is false only
// for structural problems (uncommitted workflow, unknown workflow name, a
// panic or unexpected error escaping a step); every anticipated runtime
// condition resolves to Success true with a degraded answer.
type RunResult struct {
	RunID   string       `json:"run_id,omitempty"`
	Success bool         `json:"success"`
	Result  Values       `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
	Steps   []StepReport `json:"steps,omitempty"`
}

// Answer returns the final answer field, or the empty string if the run
// produced none.
func (r RunResult) Answer() string {
	s, _ := r.Result.GetString(FieldAnswer)
	return s
}

// Degraded reports whether any step fell back to a substitute output.
func (r RunResult) Degraded() bool {
	for _, s := range r.Steps {
		if s.Status == StepDegraded {
			return true
		}
	}
	return false
}

// FailedResult builds the hard-failure result for structural errors.
func FailedResult(err error) RunResult {
	return RunResult{Success: false, Error: err.Error()}
}
