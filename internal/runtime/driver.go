package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/schema"
	"github.com/aretw0/furrow/pkg/workflow"
	"github.com/google/uuid"
)

// Driver executes a committed workflow exactly once per call. It owns the
// run's context store, walks the steps in append order, and converts every
// outcome into a RunResult. A single Driver is safe to share across
// concurrent runs: all per-run state lives in the store it seeds.
type Driver struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
	newID  func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets a structured logger for run progress records.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithHooks registers lifecycle callbacks emitted around runs and steps.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Driver) {
		d.hooks = hooks
	}
}

// WithClock replaces the wall clock, for deterministic durations in tests.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRunID replaces the run id generator, for stable ids in tests.
func WithRunID(fn func() string) Option {
	return func(d *Driver) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// New creates a Driver. Without options it logs nowhere and stamps runs
// with random UUIDs.
func New(opts ...Option) *Driver {
	d := &Driver{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs a committed workflow against the given trigger data and
// optional per-step overrides.
//
// Anticipated runtime conditions never fail the run: steps hand back
// degraded outputs and execution continues. The hard failures are a
// workflow that was never committed, a context cancelled between steps,
// and a step function that panics or returns an error; those abort with
// Success false and the cause in RunResult.Error.
func (d *Driver) Execute(ctx context.Context, wf *workflow.Workflow, trigger domain.TriggerData, overrides map[string]domain.Values) domain.RunResult {
	if wf == nil {
		return domain.FailedResult(fmt.Errorf("%w: nil workflow", domain.ErrWorkflowNotCommitted))
	}
	if !wf.Committed() {
		d.logger.Error("refusing to run uncommitted workflow", "workflow", wf.Name())
		return domain.FailedResult(fmt.Errorf("%w: %s", domain.ErrWorkflowNotCommitted, wf.Name()))
	}

	runID := d.newID()
	logger := d.logger.With("workflow", wf.Name(), "run_id", runID)

	// The declared trigger shape is advisory: violations are reported but
	// the run proceeds, and each step's own degradation policy covers the
	// missing pieces.
	if err := schema.Validate(wf.TriggerSchema(), trigger.Values()); err != nil {
		logger.Warn("trigger data does not satisfy declared shape", "err", err)
	}

	store := domain.NewContextStore(trigger, overrides)
	runStarted := d.now()
	d.emitRun(ctx, domain.EventRunStart, wf.Name(), runID, domain.RunResult{}, 0)

	reports := make([]domain.StepReport, 0, wf.Len())
	fail := func(err error) domain.RunResult {
		res := domain.FailedResult(err)
		res.RunID = runID
		res.Steps = reports
		d.emitRun(ctx, domain.EventRunEnd, wf.Name(), runID, res, d.now().Sub(runStarted))
		logger.Error("run aborted", "err", err)
		return res
	}

	for _, step := range wf.Steps() {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("run cancelled before step %s: %w", step.ID, err))
		}

		d.emitStep(ctx, domain.EventStepStart, wf.Name(), runID, step.ID, domain.StepOutput{}, 0)
		logger.Debug("step state", "step", step.ID, "status", domain.StepResolving)

		stepStarted := d.now()
		out, err := d.executeStep(ctx, step, store, logger)
		elapsed := d.now().Sub(stepStarted)
		if err != nil {
			reports = append(reports, domain.StepReport{
				StepID:   step.ID,
				Status:   domain.StepFailed,
				Duration: elapsed,
			})
			return fail(fmt.Errorf("step %s: %w", step.ID, err))
		}

		if err := store.Append(step.ID, out.Values); err != nil {
			return fail(err)
		}
		reports = append(reports, domain.StepReport{
			StepID:   step.ID,
			Status:   out.Status(),
			Reason:   out.Reason,
			Duration: elapsed,
			Output:   out.Values,
		})
		d.emitStep(ctx, domain.EventStepEnd, wf.Name(), runID, step.ID, out, elapsed)
		logger.Debug("step state", "step", step.ID, "status", out.Status(), "reason", out.Reason, "duration", elapsed)
	}

	final, _ := store.Final()
	result := domain.RunResult{
		RunID:   runID,
		Success: true,
		Result:  final,
		Steps:   reports,
	}
	d.emitRun(ctx, domain.EventRunEnd, wf.Name(), runID, result, d.now().Sub(runStarted))
	logger.Info("run finished", "steps", len(reports), "degraded", result.Degraded())
	return result
}

// executeStep invokes the step function with panic containment. A panic is
// a programming mistake, not a runtime condition, so it surfaces as a hard
// error instead of a degraded output.
func (d *Driver) executeStep(ctx context.Context, step workflow.Step, store *domain.ContextStore, logger *slog.Logger) (out domain.StepOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("step panicked", "step", step.ID, "panic", r)
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()

	logger.Debug("step state", "step", step.ID, "status", domain.StepRunning)
	return step.Run(ctx, store)
}

func (d *Driver) emitRun(ctx context.Context, typ domain.EventType, wfName, runID string, res domain.RunResult, dur time.Duration) {
	var fn func(context.Context, *domain.RunEvent)
	switch typ {
	case domain.EventRunStart:
		fn = d.hooks.OnRunStart
	case domain.EventRunEnd:
		fn = d.hooks.OnRunEnd
	}
	if fn == nil {
		return
	}
	fn(ctx, &domain.RunEvent{
		EventBase: domain.EventBase{
			Timestamp: d.now(),
			Type:      typ,
			Workflow:  wfName,
			RunID:     runID,
		},
		Success:  res.Success,
		Degraded: res.Degraded(),
		Duration: dur,
	})
}

func (d *Driver) emitStep(ctx context.Context, typ domain.EventType, wfName, runID, stepID string, out domain.StepOutput, dur time.Duration) {
	var fn func(context.Context, *domain.StepEvent)
	switch typ {
	case domain.EventStepStart:
		fn = d.hooks.OnStepStart
	case domain.EventStepEnd:
		fn = d.hooks.OnStepEnd
	}
	if fn == nil {
		return
	}
	event := &domain.StepEvent{
		EventBase: domain.EventBase{
			Timestamp: d.now(),
			Type:      typ,
			Workflow:  wfName,
			RunID:     runID,
		},
		StepID:   stepID,
		Duration: dur,
	}
	if typ == domain.EventStepEnd {
		event.Status = out.Status()
		event.Reason = out.Reason
	}
	fn(ctx, event)
}
