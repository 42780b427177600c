package observability

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run and step collectors.
type Metrics struct {
	runsTotal     *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	degradedSteps *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// registers with the process-wide default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_runs_total",
				Help: "Total number of workflow runs",
			},
			[]string{"workflow", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "furrow_step_duration_seconds",
				Help: "Duration of step executions",
			},
			[]string{"workflow", "step", "status"},
		),
		degradedSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_degraded_steps_total",
				Help: "Total number of steps that fell back to a substitute output",
			},
			[]string{"workflow", "step", "reason"},
		),
	}
	reg.MustRegister(m.runsTotal, m.stepDuration, m.degradedSteps)
	return m
}

// Hooks returns lifecycle hooks that record run and step metrics.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			m.runsTotal.WithLabelValues(e.Workflow, runStatus(e)).Inc()
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			m.stepDuration.WithLabelValues(e.Workflow, e.StepID, string(e.Status)).Observe(e.Duration.Seconds())
			if e.Status == domain.StepDegraded {
				m.degradedSteps.WithLabelValues(e.Workflow, e.StepID, e.Reason).Inc()
			}
		},
	}
}

// runStatus collapses a run outcome into one metric label. A degraded run is
// still successful but worth distinguishing on a dashboard.
func runStatus(e *domain.RunEvent) string {
	switch {
	case !e.Success:
		return "failed"
	case e.Degraded:
		return "degraded"
	default:
		return "success"
	}
}
