package waypoint_test

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/fixed"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/workflows"
)

func Example() {
	outbox := memory.NewOutbox()
	g, err := workflows.Weekday(workflows.Collaborators{
		Notifier:  outbox,
		Directory: memory.NewDirectory(workflows.DemoRecords...),
		Clock:     fixed.OnWeekday(time.Wednesday),
		Random:    fixed.NewRandom(75),
	})
	if err != nil {
		panic(err)
	}

	eng := waypoint.New(waypoint.WithCheckpointStore(memory.NewStore()))
	state, err := eng.Run(context.Background(), g, nil, "example-run")
	if err != nil {
		panic(err)
	}

	fmt.Println(state.History)
	fmt.Println(state.Values["message"])
	fmt.Println(outbox.Messages()[0].Recipient)
	// Output:
	// [get_weekday get_random_number send_welcome_email]
	// welcome email sent to John <john@example.com> (random number 75, 3 recommendations)
	// john@example.com
}

func ExampleEngine_RunBatch() {
	g, err := workflows.Order(workflows.Collaborators{
		Notifier:  memory.NewOutbox(),
		Directory: memory.NewDirectory(),
		Clock:     fixed.OnWeekday(time.Monday),
		Random:    fixed.NewRandom(),
	})
	if err != nil {
		panic(err)
	}

	results, err := waypoint.New().RunBatch(context.Background(), g, []waypoint.RunRequest{
		{CorrelationID: "order-a", Initial: map[string]any{"quantity": 2, "product_id": "item_001"}},
		{CorrelationID: "order-b", Initial: map[string]any{"quantity": 3, "product_id": "item_001"}},
		{CorrelationID: "order-c", Initial: map[string]any{"quantity": 11, "product_id": "item_001"}},
	}, 2)
	if err != nil {
		panic(err)
	}

	for _, res := range results {
		fmt.Printf("%s: %s\n", res.CorrelationID, res.State.CurrentStep)
	}
	// Output:
	// order-a: assign_logistics
	// order-b: handle_payment_failure
	// order-c: inventory_alert
}
