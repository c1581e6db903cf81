package validator

import (
	"fmt"
	"slices"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Definition is the raw material of a graph before it is assembled.
type Definition struct {
	Name  string
	Entry string
	Steps []domain.Step
	Edges []domain.Edge
}

// ValidateGraph checks a definition and returns a *domain.ConfigurationError
// listing every problem found, or nil.
//
// Every step needs exactly one outgoing edge, with End as an explicit target;
// there is no implicit "falls off the graph" termination.
func ValidateGraph(def Definition) error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	declared := make(map[string]bool, len(def.Steps))
	for _, st := range def.Steps {
		switch {
		case st.Name == "":
			report("step with empty name")
		case st.Name == domain.End:
			report("step name %q is reserved for the terminal marker", st.Name)
		case declared[st.Name]:
			report("step %q declared more than once", st.Name)
		}
		if st.Fn == nil {
			report("step %q has no function", st.Name)
		}
		declared[st.Name] = true
	}

	if def.Entry == "" {
		report("entry step is not set")
	} else if !declared[def.Entry] {
		report("entry step %q is not declared", def.Entry)
	}

	validTarget := func(target string) bool {
		return target == domain.End || declared[target]
	}

	outgoing := make(map[string]domain.Edge, len(def.Edges))
	for _, e := range def.Edges {
		if !declared[e.From] {
			report("edge from undeclared step %q", e.From)
			continue
		}
		if _, dup := outgoing[e.From]; dup {
			report("step %q has more than one outgoing edge", e.From)
			continue
		}
		outgoing[e.From] = e

		if !e.Conditional() {
			if e.To == "" {
				report("edge from %q has no target", e.From)
			} else if !validTarget(e.To) {
				report("edge %q -> %q targets an undeclared step", e.From, e.To)
			}
			continue
		}
		problems = append(problems, checkRouter(e, validTarget)...)
	}

	for _, st := range def.Steps {
		if st.Name == "" {
			continue
		}
		if _, ok := outgoing[st.Name]; !ok {
			report("step %q has no outgoing edge (route it to the terminal marker explicitly)", st.Name)
		}
	}

	// Reachability is only meaningful once the entry is known.
	if declared[def.Entry] {
		reached := crawl(def.Entry, outgoing)
		for _, st := range def.Steps {
			if st.Name != "" && !reached[st.Name] {
				report("step %q is unreachable from entry %q", st.Name, def.Entry)
			}
		}
	}

	if len(problems) > 0 {
		return &domain.ConfigurationError{Graph: def.Name, Problems: problems}
	}
	return nil
}

func checkRouter(e domain.Edge, validTarget func(string) bool) []string {
	var problems []string
	r := e.Router
	name := r.Name
	if name == "" {
		name = e.From
	}

	if r.Fn == nil {
		problems = append(problems, fmt.Sprintf("router %q after %q has no function", name, e.From))
	}
	if len(r.Outcomes) == 0 {
		problems = append(problems, fmt.Sprintf("router %q after %q declares no outcomes", name, e.From))
	}

	seen := make(map[string]bool, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if seen[outcome] {
			problems = append(problems, fmt.Sprintf("router %q declares outcome %q twice", name, outcome))
			continue
		}
		seen[outcome] = true

		target, ok := e.Routes[outcome]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("router %q outcome %q has no route", name, outcome))
		case !validTarget(target):
			problems = append(problems, fmt.Sprintf("router %q outcome %q targets undeclared step %q", name, outcome, target))
		}
	}

	var stray []string
	for outcome := range e.Routes {
		if !slices.Contains(r.Outcomes, outcome) {
			stray = append(stray, outcome)
		}
	}
	slices.Sort(stray)
	for _, outcome := range stray {
		problems = append(problems, fmt.Sprintf("router %q routes outcome %q it never declares", name, outcome))
	}
	return problems
}

// crawl walks the edges breadth-first from the entry.
func crawl(entry string, outgoing map[string]domain.Edge) map[string]bool {
	visited := map[string]bool{}
	queue := []string{entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] || current == domain.End {
			continue
		}
		visited[current] = true

		e, ok := outgoing[current]
		if !ok {
			continue
		}
		for _, target := range e.Targets() {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited
}
