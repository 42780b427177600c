package domain

// StepStatus tracks a step through its execution lifecycle.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepResolving StepStatus = "resolving-input"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	// StepDegraded marks a recoverable condition that produced a substitute
	// output; the run continues.
	StepDegraded StepStatus = "degraded"
	// StepFailed is reserved for conditions a step cannot substitute a
	// default for. The canonical pipeline converts every anticipated failure
	// to StepDegraded instead, so StepFailed only appears when a step
	// panics or returns an unexpected error.
	StepFailed StepStatus = "failed"
)
