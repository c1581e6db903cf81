package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/waypoint/pkg/schema"
)

// ExecutionStatus describes where a run is in its lifecycle.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"   // Steps are still executing
	StatusCompleted ExecutionStatus = "completed" // The terminal marker was reached
	StatusFailed    ExecutionStatus = "failed"    // The run stopped with an engine error
)

// Delta is the partial update a step returns.
// Keys overwrite the State; keys that are absent keep their prior value.
// Merged values are copied, so nested slices and maps are never shared
// between a State and the delta that produced it.
type Delta map[string]any

// State represents the current snapshot of a run.
type State struct {
	// CorrelationID is the caller-supplied token identifying the run.
	CorrelationID string `json:"correlation_id"`

	// Graph is the name of the graph being executed.
	Graph string `json:"graph,omitempty"`

	// CurrentStep is the last step that was executed.
	CurrentStep string `json:"current_step,omitempty"`

	Status ExecutionStatus `json:"status"`

	// Values holds the workflow facts accumulated so far.
	Values map[string]any `json:"values"`

	// History tracks the executed steps in order, including revisits.
	History []string `json:"history,omitempty"`

	// Steps is the number of step executions so far.
	Steps int `json:"steps"`
}

// NewState creates a clean running state for a run.
func NewState(correlationID, graph string) *State {
	return &State{
		CorrelationID: correlationID,
		Graph:         graph,
		Status:        StatusRunning,
		Values:        make(map[string]any),
		History:       []string{},
	}
}

// Clone returns a deep copy. Nested slices and maps held in Values can be
// mutated without affecting s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Values = make(map[string]any, len(s.Values))
	for k, v := range s.Values {
		next.Values[k] = CopyValue(v)
	}
	next.History = append([]string(nil), s.History...)
	return &next
}

// Merge applies a copy of delta in place.
func (s *State) Merge(delta Delta) {
	if s.Values == nil {
		s.Values = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		s.Values[k] = CopyValue(v)
	}
}

// CopyValue returns a deep copy of v. Scalars are returned as is.
func CopyValue(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return v
	}
	c, err := copystructure.Copy(v)
	if err != nil {
		return v
	}
	return c
}

// Keys returns the value names in lexical order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns a raw value.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Has reports whether key holds a non-nil value.
func (s *State) Has(key string) bool {
	v, ok := s.Values[key]
	return ok && v != nil
}

// String returns the value as a string, or "" if absent or not a string.
func (s *State) String(key string) string {
	str, _ := s.Values[key].(string)
	return str
}

// Bool returns the value as a bool, or false if absent or not a bool.
func (s *State) Bool(key string) bool {
	b, _ := s.Values[key].(bool)
	return b
}

// Int returns the value as an int. It accepts exactly the values an int
// schema field accepts, decoded JSON numbers included.
func (s *State) Int(key string) (int, bool) {
	return schema.AsInt(s.Values[key])
}

// Decode copies Values into a struct using `mapstructure` tags.
// Loosely typed inputs (e.g. float64 for an int field) are converted.
func (s *State) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(s.Values); err != nil {
		return fmt.Errorf("failed to decode state values: %w", err)
	}
	return nil
}
