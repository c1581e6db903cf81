package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter EventType = "step_enter"
	EventStepLeave EventType = "step_leave"
	EventRoute     EventType = "route"
	EventRunEnd    EventType = "run_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          EventType `json:"type"`
	CorrelationID string    `json:"correlation_id"`
	Graph         string    `json:"graph"`
}

// StepEvent represents entry into or exit from a step.
// Delta, Duration and Err are only set on leave.
type StepEvent struct {
	EventBase
	Step     string        `json:"step"`
	Delta    Delta         `json:"delta,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RouteEvent records a routing decision. Router and Outcome are empty for
// unconditional edges.
type RouteEvent struct {
	EventBase
	From    string `json:"from"`
	Router  string `json:"router,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	To      string `json:"to"`
}

// RunEvent closes a run.
type RunEvent struct {
	EventBase
	Status   ExecutionStatus `json:"status"`
	Steps    int             `json:"steps"`
	Duration time.Duration   `json:"duration"`
	Err      error           `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter func(context.Context, *StepEvent)
	OnStepLeave func(context.Context, *StepEvent)
	OnRoute     func(context.Context, *RouteEvent)
	OnRunEnd    func(context.Context, *RunEvent)
}

