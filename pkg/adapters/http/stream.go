package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
)

// StreamManager fans lifecycle events out to SSE subscribers, per correlation id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // correlation id -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for the events of correlationID.
// The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(correlationID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 32)
	if _, ok := sm.subscribers[correlationID]; !ok {
		sm.subscribers[correlationID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[correlationID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[correlationID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, correlationID)
				}
			}
			close(ch)
		})
	}
}

// Broadcast sends msg to every subscriber of correlationID.
// Slow subscribers miss messages instead of blocking the run.
func (sm *StreamManager) Broadcast(correlationID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[correlationID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping event", "correlation_id", correlationID)
		}
	}
}

// errorEvent adds the error text that the domain events keep out of JSON.
type errorEvent struct {
	Event any    `json:"event"`
	Error string `json:"error,omitempty"`
}

// Hooks publishes every lifecycle event as one JSON message.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.CorrelationID, e, nil)
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			sm.publish(e.CorrelationID, e, e.Err)
		},
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			sm.publish(e.CorrelationID, e, nil)
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			sm.publish(e.CorrelationID, e, e.Err)
		},
	}
}

func (sm *StreamManager) publish(correlationID string, event any, err error) {
	sm.mu.RLock()
	_, watched := sm.subscribers[correlationID]
	sm.mu.RUnlock()
	if !watched {
		return
	}

	payload := errorEvent{Event: event}
	if err != nil {
		payload.Error = err.Error()
	}
	data, mErr := json.Marshal(payload)
	if mErr != nil {
		sm.logger.Error("failed to encode event", "correlation_id", correlationID, "error", mErr)
		return
	}
	sm.Broadcast(correlationID, string(data))
}
