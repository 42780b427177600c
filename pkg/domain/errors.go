package domain

import "errors"

// ErrWorkflowNotFound is returned when a workflow name is not registered.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ErrWorkflowNotCommitted is returned when a run is requested against a
// workflow that was never committed.
var ErrWorkflowNotCommitted = errors.New("workflow not committed")

// ErrWorkflowCommitted is returned when a step is added after commit.
var ErrWorkflowCommitted = errors.New("workflow already committed")

// ErrDuplicateStep is returned when a step id already exists in a workflow.
var ErrDuplicateStep = errors.New("duplicate step id")

// ErrInvalidStep is returned for steps with an empty id or nil run function.
var ErrInvalidStep = errors.New("invalid step")

// ErrDuplicateWorkflow is returned when a workflow name is registered twice.
var ErrDuplicateWorkflow = errors.New("workflow already registered")

// ErrDuplicateOutput is returned when a step output would be recorded twice
// for the same step id within one run.
var ErrDuplicateOutput = errors.New("step output already recorded")

// ErrRunNotFound is returned when a run id cannot be found in the archive.
var ErrRunNotFound = errors.New("run not found")
