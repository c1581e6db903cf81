package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// letter describes one kind of email a workflow can send.
type letter struct {
	kind      string
	recipient string
	subject   string
	greeting  string
}

var (
	welcomeLetter = letter{
		kind:      "welcome",
		recipient: "John",
		subject:   "Welcome aboard",
		greeting:  "Welcome to the platform! We are glad to have you with us.",
	}
	goodbyeLetter = letter{
		kind:      "goodbye",
		recipient: "Tom",
		subject:   "See you soon",
		greeting:  "Thanks for travelling with us. We hope to see you again.",
	}
)

// mailStep looks up the letter's recipient, attaches the recommendations and
// sends it. Every outcome, including failures, is reported in "message".
func mailStep(c Collaborators, l letter) domain.StepFunc {
	return func(ctx context.Context, s *domain.State) (domain.Delta, error) {
		number, _ := s.Int("random_number")

		found, err := c.Directory.Query(ctx, ports.Criteria{Name: l.recipient, Limit: 1})
		if err != nil {
			return notSent(l, fmt.Sprintf("looking up %s: %v", l.recipient, err)), nil
		}
		if len(found) == 0 {
			return notSent(l, fmt.Sprintf("no directory record for %s", l.recipient)), nil
		}
		to := found[0]

		// Recommendations are a garnish: a failed lookup sends the letter without them.
		recs, _ := c.Directory.Query(ctx, ports.Criteria{NamePrefix: RecommendationPrefix})

		body := compose(l, to.Name, number, recs)
		if err := c.Notifier.Send(ctx, to.Contact, l.subject, body); err != nil {
			return notSent(l, fmt.Sprintf("sending to %s <%s>: %v", to.Name, to.Contact, err)), nil
		}

		return domain.Delta{
			"recipient":  to.Name,
			"email_sent": true,
			"message": fmt.Sprintf("%s email sent to %s <%s> (random number %d, %d recommendations)",
				l.kind, to.Name, to.Contact, number, len(recs)),
		}, nil
	}
}

func notSent(l letter, reason string) domain.Delta {
	return domain.Delta{
		"recipient":  l.recipient,
		"email_sent": false,
		"message":    fmt.Sprintf("%s email not sent: %s", l.kind, reason),
	}
}

func compose(l letter, name string, number int, recs []domain.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n\nYour number today: %d\n", name, l.greeting, number)
	if len(recs) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range recs {
			fmt.Fprintf(&b, "- %s: %s\n", strings.TrimPrefix(r.Name, RecommendationPrefix), r.Contact)
		}
	}
	b.WriteString("\nIf you have any questions, just reply to this email.\n\nBest regards,\nThe Waypoint team\n")
	return b.String()
}
