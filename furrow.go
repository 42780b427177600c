package furrow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/furrow/internal/runtime"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/aretw0/furrow/pkg/schema"
	"github.com/aretw0/furrow/pkg/steps"
	"github.com/aretw0/furrow/pkg/workflow"
)

// DefaultWorkflowName is the name the canonical ask pipeline registers under.
const DefaultWorkflowName = "ask"

// GeneratorFactory builds a generator on first use. The engine calls it at
// most once concurrently; a successful instance is cached for the engine's
// lifetime, a failed attempt is retried on the next run.
type GeneratorFactory func(ctx context.Context) (ports.Generator, error)

// Engine is the high-level entry point for the furrow library. It owns the
// workflow registry, drives runs through the internal runtime, lazily
// constructs the generator, and archives finished runs when a store is
// configured.
type Engine struct {
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	store        ports.RunStore
	tools        ports.ToolSource
	factory      GeneratorFactory
	agentTimeout time.Duration
	now          func() time.Time

	driver *runtime.Driver

	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow

	genGroup singleflight.Group
	genMu    sync.RWMutex
	gen      ports.Generator
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks for run and step lifecycle events.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRunStore enables best-effort run archiving. Archiving failures are
// logged and never affect the run result.
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithToolSource attaches a tool source. The engine closes over it when
// handing tools to a generator factory and exposes it via ToolSource.
func WithToolSource(tools ports.ToolSource) Option {
	return func(e *Engine) {
		e.tools = tools
	}
}

// WithGenerator injects an already-constructed generator, bypassing lazy
// construction entirely.
func WithGenerator(gen ports.Generator) Option {
	return func(e *Engine) {
		e.gen = gen
	}
}

// WithGeneratorFunc registers a lazy generator factory. Construction is
// deferred until the first run that needs the generator.
func WithGeneratorFunc(factory GeneratorFactory) Option {
	return func(e *Engine) {
		e.factory = factory
	}
}

// WithAgentTimeout bounds each generator call in the default ask pipeline.
// Zero means no timeout.
func WithAgentTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.agentTimeout = d
	}
}

// WithClock overrides the time source used for run records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New initializes an Engine and registers the canonical ask workflow bound
// to the engine's own generator source. With no generator configured the
// pipeline still works; it degrades to the canned answer.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:       time.Now,
		workflows: make(map[string]*workflow.Workflow),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e.driver = runtime.New(
		runtime.WithLogger(e.logger),
		runtime.WithHooks(e.hooks),
		runtime.WithClock(e.now),
	)

	answerOpts := []steps.AnswerOption{steps.WithLogger(e.logger)}
	if e.agentTimeout > 0 {
		answerOpts = append(answerOpts, steps.WithCallTimeout(e.agentTimeout))
	}
	ask, err := NewAskWorkflow(e.GeneratorSource(), answerOpts...)
	if err != nil {
		// Both step ids are distinct constants; AddStep cannot reject them.
		panic(fmt.Sprintf("furrow: building default workflow: %v", err))
	}
	e.workflows[DefaultWorkflowName] = ask

	return e
}

// NewAskWorkflow builds and commits the canonical two-step pipeline:
// prepare-query followed by generate-answer.
func NewAskWorkflow(source steps.GeneratorSource, opts ...steps.AnswerOption) (*workflow.Workflow, error) {
	wf := workflow.New(DefaultWorkflowName, schema.Schema{domain.FieldQuery: schema.String()})
	if err := wf.AddStep(steps.PrepareQuery()); err != nil {
		return nil, err
	}
	if err := wf.AddStep(steps.GenerateAnswer(source, opts...)); err != nil {
		return nil, err
	}
	wf.Commit()
	return wf, nil
}

// Register adds a committed (or to-be-committed) workflow to the registry.
func (e *Engine) Register(wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("cannot register a nil workflow")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[wf.Name()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateWorkflow, wf.Name())
	}
	e.workflows[wf.Name()] = wf
	return nil
}

// Workflows returns the registered workflow names, sorted.
func (e *Engine) Workflows() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.workflows))
	for name := range e.workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run drives the named workflow with the given trigger and per-step
// overrides. An unknown workflow name yields a failed result, not an error;
// the run boundary never panics or propagates step problems.
func (e *Engine) Run(ctx context.Context, name string, trigger domain.TriggerData, overrides map[string]domain.Values) domain.RunResult {
	e.mu.RLock()
	wf, ok := e.workflows[name]
	e.mu.RUnlock()
	if !ok {
		e.logger.Warn("workflow not found", "workflow", name)
		return domain.FailedResult(fmt.Errorf("%w: %q", domain.ErrWorkflowNotFound, name))
	}

	started := e.now()
	result := e.driver.Execute(ctx, wf, trigger, overrides)
	finished := e.now()

	if e.store != nil {
		record := domain.NewRunRecord(name, trigger, result, started, finished)
		if err := e.store.Save(ctx, record); err != nil {
			e.logger.Warn("archiving run failed", "run_id", result.RunID, "err", err)
		}
	}
	return result
}

// Ask runs the default workflow with the given query.
func (e *Engine) Ask(ctx context.Context, query string) domain.RunResult {
	return e.Run(ctx, DefaultWorkflowName, domain.TriggerData{Query: query}, nil)
}

// GeneratorSource exposes the engine's lazy generator acquisition in the
// shape the answer step consumes.
func (e *Engine) GeneratorSource() steps.GeneratorSource {
	return e.generator
}

// ToolSource returns the attached tool source, if any.
func (e *Engine) ToolSource() ports.ToolSource {
	return e.tools
}

// Archive returns the configured run store, if any.
func (e *Engine) Archive() ports.RunStore {
	return e.store
}

// generator returns the cached generator or constructs it through the
// factory. Construction is single-flight: concurrent first runs share one
// attempt. Errors are never cached, so a transient construction failure is
// retried on the next run; ErrUnconfigured simply resurfaces each time.
func (e *Engine) generator(ctx context.Context) (ports.Generator, error) {
	e.genMu.RLock()
	gen := e.gen
	e.genMu.RUnlock()
	if gen != nil {
		return gen, nil
	}
	if e.factory == nil {
		return nil, ports.ErrUnconfigured
	}

	v, err, _ := e.genGroup.Do("generator", func() (any, error) {
		e.genMu.RLock()
		cached := e.gen
		e.genMu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		built, err := e.factory(ctx)
		if err != nil {
			return nil, err
		}
		e.genMu.Lock()
		e.gen = built
		e.genMu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ports.Generator), nil
}
