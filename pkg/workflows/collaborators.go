package workflows

import (
	"errors"
	"maps"
	"slices"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// Collaborators are the side-effecting dependencies a workflow's steps use.
type Collaborators struct {
	Notifier  ports.Notifier
	Directory ports.Directory
	Clock     ports.Clock
	Random    ports.RandomSource

	// Stock is the inventory by product id. Nil means DefaultStock.
	Stock map[string]int

	// Conditions are the weather reports drawn from. Empty means
	// DefaultConditions.
	Conditions []string
}

// DefaultStock returns the demo inventory.
func DefaultStock() map[string]int {
	return map[string]int{"item_001": 10}
}

// DefaultConditions returns the demo weather reports, in draw order.
func DefaultConditions() []string {
	return []string{"sunny", "cloudy", "overcast", "light rain", "moderate rain", "heavy rain"}
}

// inventory copies the stock so later changes by the caller do not reach
// running steps.
func (c Collaborators) inventory() map[string]int {
	if c.Stock == nil {
		return DefaultStock()
	}
	return maps.Clone(c.Stock)
}

func (c Collaborators) conditions() []string {
	if len(c.Conditions) == 0 {
		return DefaultConditions()
	}
	return slices.Clone(c.Conditions)
}

// check reports every missing collaborator as a configuration error of graph.
func (c Collaborators) check(graph string) error {
	var problems []string
	if c.Notifier == nil {
		problems = append(problems, "notifier is nil")
	}
	if c.Directory == nil {
		problems = append(problems, "directory is nil")
	}
	if c.Clock == nil {
		problems = append(problems, "clock is nil")
	}
	if c.Random == nil {
		problems = append(problems, "random source is nil")
	}
	if len(problems) > 0 {
		return &domain.ConfigurationError{Graph: graph, Problems: problems}
	}
	return nil
}

// Recommendation records are directory entries whose name carries this prefix.
const RecommendationPrefix = "recommend:"

// DemoRecords seeds a directory so every workflow finds its recipients.
var DemoRecords = []domain.Record{
	{ID: 1, Name: "John", Contact: "john@example.com"},
	{ID: 2, Name: "Tom", Contact: "tom@example.com"},
	{ID: 3, Name: RecommendationPrefix + "Trail Mix", Contact: "Energy for the long climbs"},
	{ID: 4, Name: RecommendationPrefix + "Hiking Boots", Contact: "Waterproof and broken in"},
	{ID: 5, Name: RecommendationPrefix + "Route Atlas", Contact: "Every waypoint in one binder"},
}

// ErrUnknownWorkflow is returned when a catalog has no workflow by that name.
var ErrUnknownWorkflow = errors.New("unknown workflow")
