package workflows

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/schema"
)

// WeatherName is the graph name of the weather email workflow.
const WeatherName = "weather-email"

// Coordinates are drawn around this point, within a tenth of a degree.
const (
	baseLatitude  = 39.9
	baseLongitude = 116.4
	jitterSteps   = 1000
)

// WeatherSchema declares the State of the weather email workflow.
var WeatherSchema = schema.MustNew(
	schema.Field{Name: "input_query", Type: schema.String(), Default: ""},
	schema.Field{Name: "current_weekday", Type: schema.String()},
	schema.Field{Name: "coordinates", Type: schema.String()},
	schema.Field{Name: "current_time", Type: schema.String()},
	schema.Field{Name: "weather", Type: schema.String()},
	schema.Field{Name: "random_number", Type: schema.Int()},
	schema.Field{Name: "recipient", Type: schema.String()},
	schema.Field{Name: "email_sent", Type: schema.Bool(), Default: false},
	schema.Field{Name: "message", Type: schema.String(), Default: ""},
)

// Weather builds the weather email workflow:
//
//	start -> get_weekday
//	  wednesday -> get_coordinates -> get_weather
//	    sunny     -> get_random_number
//	      welcome   -> send_welcome_email -> End
//	      goodbye   -> send_goodbye_email -> End
//	    other     -> End
//	  other     -> End
func Weather(c Collaborators) (*domain.Graph, error) {
	if err := c.check(WeatherName); err != nil {
		return nil, err
	}

	return flow.New(WeatherName).
		Schema(WeatherSchema).
		Step("start", func(context.Context, *domain.State) (domain.Delta, error) {
			return domain.Delta{"message": "weather workflow started"}, nil
		}).
		Step("get_weekday", weekdayStep(c)).
		Describe("get_weekday", "Record the current day of the week").
		Step("get_coordinates", coordinatesStep(c)).
		Describe("get_coordinates", "Locate the user and read the local time").
		Step("get_weather", weatherStep(c.Random, c.conditions())).
		Describe("get_weather", "Look up the weather at the coordinates").
		Step("get_random_number", randomNumberStep(c)).
		Describe("get_random_number", "Draw a number between 0 and 100").
		Step("send_welcome_email", mailStep(c, welcomeLetter)).
		Step("send_goodbye_email", mailStep(c, goodbyeLetter)).
		Entry("start").
		Edge("start", "get_weekday").
		Branch("get_weekday",
			flow.Predicate("route_by_weekday", func(s *domain.State) bool {
				return s.String("current_weekday") == time.Wednesday.String()
			}, "wednesday", "other"),
			flow.Routes{"wednesday": "get_coordinates", "other": flow.End}).
		Edge("get_coordinates", "get_weather").
		Branch("get_weather",
			flow.Predicate("route_by_weather", func(s *domain.State) bool {
				return s.String("weather") == "sunny"
			}, "sunny", "other"),
			flow.Routes{"sunny": "get_random_number", "other": flow.End}).
		Branch("get_random_number",
			flow.Predicate("route_by_random_number", func(s *domain.State) bool {
				n, _ := s.Int("random_number")
				return n >= WelcomeThreshold
			}, "welcome", "goodbye"),
			flow.Routes{"welcome": "send_welcome_email", "goodbye": "send_goodbye_email"}).
		Edge("send_welcome_email", flow.End).
		Edge("send_goodbye_email", flow.End).
		Build()
}

// coordinatesStep reads the position and the local time concurrently and
// joins both before returning.
func coordinatesStep(c Collaborators) domain.StepFunc {
	return func(_ context.Context, _ *domain.State) (domain.Delta, error) {
		var (
			mu    sync.Mutex
			delta = domain.Delta{}
			g     errgroup.Group
		)
		g.Go(func() error {
			lat := baseLatitude + float64(c.Random.IntN(-jitterSteps, jitterSteps))/(10*jitterSteps)
			lon := baseLongitude + float64(c.Random.IntN(-jitterSteps, jitterSteps))/(10*jitterSteps)
			mu.Lock()
			defer mu.Unlock()
			delta["coordinates"] = fmt.Sprintf("lat %.6f, lon %.6f", lat, lon)
			return nil
		})
		g.Go(func() error {
			now := c.Clock.Now().Format(time.DateTime)
			mu.Lock()
			defer mu.Unlock()
			delta["current_time"] = now
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return delta, nil
	}
}

func weatherStep(random ports.RandomSource, conditions []string) domain.StepFunc {
	return func(_ context.Context, _ *domain.State) (domain.Delta, error) {
		return domain.Delta{"weather": conditions[random.IntN(0, len(conditions)-1)]}, nil
	}
}

// WeatherDraws returns the random draws that make a weather-email run built
// with DefaultConditions observe the given condition and number: two
// coordinate draws, the condition, then the number. Replay them with
// fixed.NewRandom.
func WeatherDraws(condition string, number int) ([]int, error) {
	conditions := DefaultConditions()
	i := slices.Index(conditions, condition)
	if i < 0 {
		return nil, fmt.Errorf("unknown weather %q, want one of %v", condition, conditions)
	}
	return []int{0, 0, i, number}, nil
}
