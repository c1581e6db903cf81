package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/presentation/tui"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
)

// RunOptions configure one invocation of a workflow from the command line.
type RunOptions struct {
	Workflow      string
	State         []string
	CorrelationID string

	// MaxSteps and Timeout override the engine defaults when non-zero.
	MaxSteps int
	Timeout  time.Duration
	JSON     bool
	Banner   bool
}

// RunReport is what a run prints in JSON mode.
type RunReport struct {
	State    *domain.State       `json:"state,omitempty"`
	Routes   []domain.RouteEvent `json:"routes,omitempty"`
	Messages []memory.Message    `json:"messages,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Execute runs a workflow of the library and reports the outcome to w.
// A failed run still reports the last known State before returning the error.
func Execute(ctx context.Context, rt *Runtime, opts RunOptions, w io.Writer) error {
	g, err := rt.Library.Graph(opts.Workflow)
	if err != nil {
		return err
	}
	initial, err := ParseState(opts.State, g.Schema())
	if err != nil {
		return err
	}

	var runOpts []waypoint.RunOption
	if opts.MaxSteps > 0 {
		runOpts = append(runOpts, waypoint.MaxSteps(opts.MaxSteps))
	}
	if opts.Timeout > 0 {
		runOpts = append(runOpts, waypoint.Timeout(opts.Timeout))
	}

	state, runErr := rt.Engine.Run(ctx, g, initial, opts.CorrelationID, runOpts...)
	if state == nil {
		state, _ = domain.FailedState(runErr)
	}

	report := RunReport{State: state}
	if state != nil {
		report.Routes = rt.Trace.Trace(state.CorrelationID)
	}
	if rt.Outbox != nil {
		report.Messages = rt.Outbox.Messages()
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	}

	if opts.Banner {
		tui.PrintBanner(w)
	}
	if err := writeReport(w, report); err != nil {
		return err
	}
	return runErr
}

func writeReport(w io.Writer, report RunReport) error {
	render := tui.ForWriter(w)
	if report.State != nil {
		out, err := tui.RenderSummary(report.State, render)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	}
	for _, r := range report.Routes {
		if r.Outcome == "" {
			fmt.Fprintf(w, "%s -> %s\n", r.From, r.To)
			continue
		}
		fmt.Fprintf(w, "%s -[%s]-> %s\n", r.From, r.Outcome, r.To)
	}
	for _, m := range report.Messages {
		fmt.Fprintf(w, "\n--- outbox: %s (%s)\n%s\n", m.Recipient, m.Subject, m.Body)
	}
	return nil
}
