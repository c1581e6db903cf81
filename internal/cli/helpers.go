package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/schema"
	"github.com/aretw0/waypoint/pkg/workflows"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
			// Context cancelled elsewhere
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger builds the application logger from the log section.
// It writes to w, normally Stderr, so Stdout stays free for results and MCP.
func NewLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(w, cfg.Log.Format, level), nil
}

// ParseWeekday accepts full English day names and their three-letter
// abbreviations, in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if want == name || want == name[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParseState turns key=value pairs into initial values. A value is kept as
// text when s declares its key as a string; otherwise it is read as a YAML
// scalar, so 3 is an int, true a bool and [1, 2] a list.
func ParseState(pairs []string, s schema.Schema) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid state %q, want key=value", pair)
		}
		if field, declared := s.Lookup(key); declared && field.Type.Name() == "string" {
			out[key] = raw
			continue
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("state %s: %w", key, err)
		}
		if value == nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}

// ScriptDraws turns the --weather and --number flags into the random draws
// that reproduce them. It returns nil when neither is set.
func ScriptDraws(weather, number string) ([]int, error) {
	var (
		n   int
		err error
	)
	if number != "" {
		n, err = strconv.Atoi(number)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", number, err)
		}
	}
	switch {
	case weather != "":
		if number == "" {
			n = workflows.WelcomeThreshold
		}
		return workflows.WeatherDraws(weather, n)
	case number != "":
		return []int{n}, nil
	}
	return nil, nil
}
