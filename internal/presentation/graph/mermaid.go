package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
)

// endID is the Mermaid node standing for domain.End. Mermaid reserves "end".
const endID = "waypoint_end"

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// OverlayFromState highlights the steps a run went through.
func OverlayFromState(state *domain.State) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{VisitedSteps: state.History, CurrentStep: state.CurrentStep}
}

// GenerateMermaid produces a Mermaid flowchart of g.
// It applies semantic styling:
// - Entry step: ((Circle))
// - Router: {Diamond}, with one labelled arrow per outcome
// - End: ([Stadium])
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	target := func(name string) string {
		if name == domain.End {
			usesEnd = true
			return endID
		}
		return sanitizeMermaidID(name)
	}

	for _, st := range g.Steps() {
		opener, closer := "[", "]"
		if st.Name == g.Entry() {
			opener, closer = "((", "))"
		}
		label := escapeLabel(st.Name)
		if st.Description != "" {
			label += "<br/><small>" + escapeLabel(st.Description) + "</small>"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(st.Name), opener, label, closer)
	}

	for _, e := range g.Edges() {
		from := sanitizeMermaidID(e.From)
		if !e.Conditional() {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, target(e.To))
			continue
		}

		// Routers are drawn per edge so two steps sharing a router name stay apart.
		router := from + "__" + sanitizeMermaidID(e.Router.Name)
		fmt.Fprintf(&sb, "    %s{\"%s\"}\n", router, escapeLabel(e.Router.Name))
		fmt.Fprintf(&sb, "    %s --> %s\n", from, router)
		for _, outcome := range e.Router.Outcomes {
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", router, escapeLabel(outcome), target(e.Routes[outcome]))
		}
	}

	if usesEnd {
		fmt.Fprintf(&sb, "    %s([\"END\"])\n", endID)
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedSteps {
			// Only style declared steps; a checkpoint may come from an older graph.
			if _, ok := g.Step(name); !ok {
				continue
			}
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if _, ok := g.Step(overlay.CurrentStep); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "end" {
		return "end_"
	}
	return s
}

// escapeLabel keeps labels inside their double quotes.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
