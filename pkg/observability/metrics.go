package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	StepVisits    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	RouteOutcomes *prometheus.CounterVec
	Runs          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_step_visits_total",
				Help: "Total number of step executions",
			},
			[]string{"graph", "step"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waypoint_step_duration_seconds",
				Help:    "Duration of step executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"graph", "step", "result"},
		),
		RouteOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_route_outcomes_total",
				Help: "Routing decisions by source step and outcome",
			},
			[]string{"graph", "from", "outcome", "to"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_runs_total",
				Help: "Finished runs by status",
			},
			[]string{"graph", "status"},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.StepVisits, m.StepDuration, m.RouteOutcomes, m.Runs} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepVisits.WithLabelValues(e.Graph, e.Step).Inc()
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.StepDuration.WithLabelValues(e.Graph, e.Step, result).Observe(e.Duration.Seconds())
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			m.RouteOutcomes.WithLabelValues(e.Graph, e.From, e.Outcome, e.To).Inc()
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(e.Graph, string(e.Status)).Inc()
		},
	}
}
