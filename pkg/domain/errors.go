package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSessionNotFound is returned when a correlation ID has no checkpoint.
var ErrSessionNotFound = errors.New("session not found")

// Sentinels for errors.Is matching against the typed run errors below.
var (
	ErrConfiguration     = errors.New("graph configuration error")
	ErrRouting           = errors.New("routing error")
	ErrStepExecution     = errors.New("step execution error")
	ErrStepLimitExceeded = errors.New("step limit exceeded")
	ErrTimeout           = errors.New("run timed out")
)

// ConfigurationError is returned by graph construction. The graph is unusable.
type ConfigurationError struct {
	Graph    string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("graph %q is misconfigured: %s", e.Graph, e.Problems[0])
	}
	return fmt.Sprintf("graph %q is misconfigured (%d problems):\n- %s",
		e.Graph, len(e.Problems), strings.Join(e.Problems, "\n- "))
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// RoutingError is returned when a router yields an outcome that has no route.
type RoutingError struct {
	CorrelationID string
	Step          string
	Router        string
	Outcome       string
	State         *State
	Err           error // set when the router itself failed
}

func (e *RoutingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run %s: router %q after step %q failed: %v", e.CorrelationID, e.Router, e.Step, e.Err)
	}
	return fmt.Sprintf("run %s: router %q after step %q returned undeclared outcome %q",
		e.CorrelationID, e.Router, e.Step, e.Outcome)
}

func (e *RoutingError) Is(target error) bool { return target == ErrRouting }

func (e *RoutingError) Unwrap() error { return e.Err }

// StepExecutionError wraps the failure of a step's function.
// State is the last-known State, before the failing step ran.
type StepExecutionError struct {
	CorrelationID string
	Step          string
	State         *State
	Err           error
}

func (e *StepExecutionError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("run %s: invalid initial state: %v", e.CorrelationID, e.Err)
	}
	return fmt.Sprintf("run %s: step %q failed: %v", e.CorrelationID, e.Step, e.Err)
}

func (e *StepExecutionError) Is(target error) bool { return target == ErrStepExecution }

func (e *StepExecutionError) Unwrap() error { return e.Err }

// StepLimitExceededError stops a run that would execute more than Limit steps.
type StepLimitExceededError struct {
	CorrelationID string
	Limit         int
	Step          string // the step that would have run next
	State         *State
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("run %s: step limit of %d exceeded before %q (possible routing cycle)",
		e.CorrelationID, e.Limit, e.Step)
}

func (e *StepLimitExceededError) Is(target error) bool { return target == ErrStepLimitExceeded }

// TimeoutError stops a run whose wall-clock budget ran out.
// The in-flight step's delta, if any, is discarded.
type TimeoutError struct {
	CorrelationID string
	Step          string
	Timeout       time.Duration
	State         *State
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run %s: timed out after %s during step %q", e.CorrelationID, e.Timeout, e.Step)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// FailedState extracts the last-known State from any run error.
func FailedState(err error) (*State, bool) {
	var (
		routing *RoutingError
		step    *StepExecutionError
		limit   *StepLimitExceededError
		timeout *TimeoutError
	)
	switch {
	case errors.As(err, &routing):
		return routing.State, true
	case errors.As(err, &step):
		return step.State, true
	case errors.As(err, &limit):
		return limit.State, true
	case errors.As(err, &timeout):
		return timeout.State, true
	}
	return nil, false
}
