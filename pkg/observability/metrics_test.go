package observability_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunOutcomeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks()
	ctx := context.Background()

	base := domain.EventBase{Workflow: "ask", Type: domain.EventRunEnd}
	hooks.OnRunEnd(ctx, &domain.RunEvent{EventBase: base, Success: true})
	hooks.OnRunEnd(ctx, &domain.RunEvent{EventBase: base, Success: true, Degraded: true})
	hooks.OnRunEnd(ctx, &domain.RunEvent{EventBase: base})

	expected := `
# HELP furrow_runs_total Total number of workflow runs
# TYPE furrow_runs_total counter
furrow_runs_total{status="degraded",workflow="ask"} 1
furrow_runs_total{status="failed",workflow="ask"} 1
furrow_runs_total{status="success",workflow="ask"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "furrow_runs_total"); err != nil {
		t.Fatal(err)
	}
}

func TestDegradedStepCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewMetrics(reg).Hooks()
	ctx := context.Background()

	base := domain.EventBase{Workflow: "ask", Type: domain.EventStepEnd}
	hooks.OnStepEnd(ctx, &domain.StepEvent{
		EventBase: base,
		StepID:    "prepare-query",
		Status:    domain.StepCompleted,
		Duration:  time.Millisecond,
	})
	hooks.OnStepEnd(ctx, &domain.StepEvent{
		EventBase: base,
		StepID:    "generate-answer",
		Status:    domain.StepDegraded,
		Reason:    domain.ReasonUnconfiguredAgent,
		Duration:  2 * time.Millisecond,
	})

	expected := `
# HELP furrow_degraded_steps_total Total number of steps that fell back to a substitute output
# TYPE furrow_degraded_steps_total counter
furrow_degraded_steps_total{reason="unconfigured_agent",step="generate-answer",workflow="ask"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "furrow_degraded_steps_total"); err != nil {
		t.Fatal(err)
	}

	// One histogram series per step/status pair.
	count, err := testutil.GatherAndCount(reg, "furrow_step_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("step duration series = %d, want 2", count)
	}
}

func TestEngineRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	eng := furrow.New(furrow.WithHooks(m.Hooks()))

	// No generator configured: the run succeeds with a degraded answer.
	result := eng.Ask(context.Background(), "what is the capital of Japan?")
	if !result.Success {
		t.Fatalf("run failed: %s", result.Error)
	}

	expected := `
# HELP furrow_runs_total Total number of workflow runs
# TYPE furrow_runs_total counter
furrow_runs_total{status="degraded",workflow="ask"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "furrow_runs_total"); err != nil {
		t.Fatal(err)
	}

	count, err := testutil.GatherAndCount(reg, "furrow_step_duration_seconds")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("step duration series = %d, want 2", count)
	}

	expectedDegraded := `
# HELP furrow_degraded_steps_total Total number of steps that fell back to a substitute output
# TYPE furrow_degraded_steps_total counter
furrow_degraded_steps_total{reason="unconfigured_agent",step="generate-answer",workflow="ask"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expectedDegraded), "furrow_degraded_steps_total"); err != nil {
		t.Fatal(err)
	}
}

func TestHooksCompose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	var runEnds int
	extra := domain.LifecycleHooks{
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) { runEnds++ },
	}
	joined := domain.JoinHooks(m.Hooks(), extra)

	joined.OnRunEnd(context.Background(), &domain.RunEvent{
		EventBase: domain.EventBase{Workflow: "ask"},
		Success:   true,
	})

	if runEnds != 1 {
		t.Errorf("extra hook calls = %d, want 1", runEnds)
	}
	count, err := testutil.GatherAndCount(reg, "furrow_runs_total")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("runs total series = %d, want 1", count)
	}
}
