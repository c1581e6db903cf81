package workflows

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
	"github.com/aretw0/waypoint/pkg/schema"
)

// WeekdayName is the graph name of the weekday email workflow.
const WeekdayName = "weekday-email"

// WelcomeThreshold is the number the weekday workflow's draw must exceed to
// send the welcome email.
const WelcomeThreshold = 50

// WeekdaySchema declares the State of the weekday email workflow.
var WeekdaySchema = schema.MustNew(
	schema.Field{Name: "current_weekday", Type: schema.String()},
	schema.Field{Name: "random_number", Type: schema.Int()},
	schema.Field{Name: "recipient", Type: schema.String()},
	schema.Field{Name: "email_sent", Type: schema.Bool(), Default: false},
	schema.Field{Name: "message", Type: schema.String(), Default: ""},
)

// Weekday builds the weekday email workflow:
//
//	get_weekday -> get_random_number -> route_by_number
//	  welcome    -> send_welcome_email -> End
//	  goodbye    -> send_goodbye_email -> End
//	  incomplete -> End
func Weekday(c Collaborators) (*domain.Graph, error) {
	if err := c.check(WeekdayName); err != nil {
		return nil, err
	}

	return flow.New(WeekdayName).
		Schema(WeekdaySchema).
		Step("get_weekday", weekdayStep(c)).
		Describe("get_weekday", "Record the current day of the week").
		Step("get_random_number", randomNumberStep(c)).
		Describe("get_random_number", "Draw a number between 0 and 100").
		Step("send_welcome_email", mailStep(c, welcomeLetter)).
		Describe("send_welcome_email", "Mail John the number and recommendations").
		Step("send_goodbye_email", mailStep(c, goodbyeLetter)).
		Describe("send_goodbye_email", "Mail Tom the number and recommendations").
		Entry("get_weekday").
		Edge("get_weekday", "get_random_number").
		Branch("get_random_number", routeByNumber(), flow.Routes{
			"welcome":    "send_welcome_email",
			"goodbye":    "send_goodbye_email",
			"incomplete": flow.End,
		}).
		Edge("send_welcome_email", flow.End).
		Edge("send_goodbye_email", flow.End).
		Build()
}

func weekdayStep(c Collaborators) domain.StepFunc {
	return func(_ context.Context, _ *domain.State) (domain.Delta, error) {
		return domain.Delta{"current_weekday": c.Clock.Now().Weekday().String()}, nil
	}
}

func randomNumberStep(c Collaborators) domain.StepFunc {
	return func(_ context.Context, _ *domain.State) (domain.Delta, error) {
		return domain.Delta{"random_number": c.Random.IntN(0, 100)}, nil
	}
}

// routeByNumber sends the welcome email only once both facts are known and the
// number is above the threshold.
func routeByNumber() domain.Router {
	return flow.Router("route_by_number", func(_ context.Context, s *domain.State) (string, error) {
		n, ok := s.Int("random_number")
		if !ok || s.String("current_weekday") == "" {
			return "incomplete", nil
		}
		if n > WelcomeThreshold {
			return "welcome", nil
		}
		return "goodbye", nil
	}, "welcome", "goodbye", "incomplete")
}
