package definition

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
	"github.com/aretw0/waypoint/pkg/registry"
	"github.com/aretw0/waypoint/pkg/schema"
)

// Document is the serialized form of a graph.
type Document struct {
	Name  string `yaml:"name" json:"name"`
	Entry string `yaml:"entry" json:"entry"`

	// State maps field names to type strings such as "int" or "[string]".
	// An empty State leaves the graph untyped.
	State map[string]string `yaml:"state" json:"state"`
	// Defaults seeds declared fields at the start of every run.
	Defaults map[string]any `yaml:"defaults" json:"defaults"`

	Steps    []StepSpec   `yaml:"steps" json:"steps"`
	Edges    []EdgeSpec   `yaml:"edges" json:"edges"`
	Branches []BranchSpec `yaml:"branches" json:"branches"`
}

// StepSpec declares a step backed by a registered implementation.
type StepSpec struct {
	Name string `yaml:"name" json:"name"`
	// Use names the registered step. Defaults to Name.
	Use         string `yaml:"use" json:"use"`
	Description string `yaml:"description" json:"description"`
}

// EdgeSpec is an unconditional transition. To may be "__end__".
type EdgeSpec struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// BranchSpec is a conditional transition resolved by a registered router.
type BranchSpec struct {
	From   string            `yaml:"from" json:"from"`
	Router string            `yaml:"router" json:"router"`
	Routes map[string]string `yaml:"routes" json:"routes"`
}

// Load reads a definition file. Files ending in .json are decoded as JSON,
// anything else as YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Parse decodes a definition in the given format ("yaml" or "json").
func Parse(data []byte, format string) (*Document, error) {
	var doc Document
	switch format {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse definition json: %w", err)
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse definition yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition format %q", format)
	}
	return &doc, nil
}

// Compile resolves every implementation in reg and builds the graph.
// Unknown names and graph problems are reported as a *domain.ConfigurationError.
func (d *Document) Compile(reg *registry.Registry) (*domain.Graph, error) {
	s, err := d.schema()
	if err != nil {
		return nil, &domain.ConfigurationError{Graph: d.Name, Problems: []string{err.Error()}}
	}

	var problems []string
	b := flow.New(d.Name).Schema(s).Entry(d.Entry)

	for _, st := range d.Steps {
		use := cmp.Or(st.Use, st.Name)
		fn, ok := reg.Step(use)
		if !ok {
			problems = append(problems, fmt.Sprintf("step %q uses unregistered step %q", st.Name, use))
			continue
		}
		b.Step(st.Name, fn).Describe(st.Name, st.Description)
	}
	for _, e := range d.Edges {
		b.Edge(e.From, e.To)
	}
	for _, br := range d.Branches {
		r, ok := reg.Router(br.Router)
		if !ok {
			problems = append(problems, fmt.Sprintf("branch from %q uses unregistered router %q", br.From, br.Router))
			continue
		}
		b.Branch(br.From, r, flow.Routes(br.Routes))
	}

	if len(problems) > 0 {
		return nil, &domain.ConfigurationError{Graph: d.Name, Problems: problems}
	}
	return b.Build()
}

func (d *Document) schema() (schema.Schema, error) {
	names := make([]string, 0, len(d.State))
	for name := range d.State {
		names = append(names, name)
	}
	slices.Sort(names)

	for name := range d.Defaults {
		if _, ok := d.State[name]; !ok {
			return schema.Schema{}, fmt.Errorf("default for undeclared field %q", name)
		}
	}

	fields := make([]schema.Field, 0, len(names))
	for _, name := range names {
		t, err := schema.ParseType(d.State[name])
		if err != nil {
			return schema.Schema{}, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, schema.Field{Name: name, Type: t, Default: d.Defaults[name]})
	}
	return schema.New(fields...)
}
