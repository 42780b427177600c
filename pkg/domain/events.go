package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart  EventType = "run_start"
	EventRunEnd    EventType = "run_end"
	EventStepStart EventType = "step_start"
	EventStepEnd   EventType = "step_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Workflow  string    `json:"workflow"`
	RunID     string    `json:"run_id,omitempty"`
}

// RunEvent marks the start or end of a workflow run.
type RunEvent struct {
	EventBase
	Success  bool          `json:"success,omitempty"`
	Degraded bool          `json:"degraded,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// StepEvent marks the start or end of a single step.
type StepEvent struct {
	EventBase
	StepID   string        `json:"step_id"`
	Status   StepStatus    `json:"status,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for run observability. Nil members are
// skipped. Hooks run synchronously on the driver's goroutine, so they must
// not block.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunEnd    func(context.Context, *RunEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
}

// JoinHooks composes several hook sets into one, invoking them in order.
func JoinHooks(hooks ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	out.OnRunStart = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnRunStart != nil {
				h.OnRunStart(ctx, e)
			}
		}
	}
	out.OnRunEnd = func(ctx context.Context, e *RunEvent) {
		for _, h := range hooks {
			if h.OnRunEnd != nil {
				h.OnRunEnd(ctx, e)
			}
		}
	}
	out.OnStepStart = func(ctx context.Context, e *StepEvent) {
		for _, h := range hooks {
			if h.OnStepStart != nil {
				h.OnStepStart(ctx, e)
			}
		}
	}
	out.OnStepEnd = func(ctx context.Context, e *StepEvent) {
		for _, h := range hooks {
			if h.OnStepEnd != nil {
				h.OnStepEnd(ctx, e)
			}
		}
	}
	return out
}
