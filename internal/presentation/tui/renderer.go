package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// NewRenderer returns a Renderer using glamour.
// It detects a light or dark background automatically.
func NewRenderer() (Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// Plain returns the markdown untouched.
func Plain(markdown string) (string, error) { return markdown, nil }

// ForWriter picks glamour for terminals and Plain for pipes and files.
func ForWriter(w io.Writer) Renderer {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if r, err := NewRenderer(); err == nil {
			return r
		}
	}
	return Plain
}

// SummaryMarkdown describes a final State as markdown: a header, the path the
// run took and a table of values.
func SummaryMarkdown(state *domain.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", state.Graph)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", state.CorrelationID)
	fmt.Fprintf(&b, "- **Status:** %s\n", state.Status)
	fmt.Fprintf(&b, "- **Steps:** %d\n", state.Steps)
	if len(state.History) > 0 {
		fmt.Fprintf(&b, "- **Path:** %s\n", strings.Join(state.History, " → "))
	}

	b.WriteString("\n| Field | Value |\n|---|---|\n")
	for _, key := range state.Keys() {
		fmt.Fprintf(&b, "| %s | %s |\n", key, cell(state.Values[key]))
	}
	return b.String()
}

// RenderSummary renders SummaryMarkdown with render.
func RenderSummary(state *domain.State, render Renderer) (string, error) {
	return render(SummaryMarkdown(state))
}

func cell(v any) string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case nil:
		s = "_unset_"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(data)
		}
	}
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}
