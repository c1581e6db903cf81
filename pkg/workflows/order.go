package workflows

import (
	"context"
	"fmt"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
	"github.com/aretw0/waypoint/pkg/schema"
)

// OrderName is the graph name of the order fulfilment workflow.
const OrderName = "order-flow"

// InventoryAlertRecipient receives the alerts raised for insufficient stock.
const InventoryAlertRecipient = "inventory@example.com"

// OrderSchema declares the State of the order workflow.
var OrderSchema = schema.MustNew(
	schema.Field{Name: "order_id", Type: schema.String(), Default: ""},
	schema.Field{Name: "product_id", Type: schema.String(), Default: ""},
	schema.Field{Name: "quantity", Type: schema.Int(), Default: 0},
	schema.Field{Name: "is_valid", Type: schema.Bool(), Default: false},
	schema.Field{Name: "inventory_sufficient", Type: schema.Bool(), Default: false},
	schema.Field{Name: "payment_success", Type: schema.Bool(), Default: false},
	schema.Field{Name: "logistics_assigned", Type: schema.Bool(), Default: false},
	schema.Field{Name: "message", Type: schema.String(), Default: ""},
)

// order is the typed view of the order State.
type order struct {
	ID        string `mapstructure:"order_id"`
	ProductID string `mapstructure:"product_id"`
	Quantity  int    `mapstructure:"quantity"`
	Valid     bool   `mapstructure:"is_valid"`
	InStock   bool   `mapstructure:"inventory_sufficient"`
	Paid      bool   `mapstructure:"payment_success"`
}

func (o order) label() string {
	if o.ID == "" {
		return "order"
	}
	return "order " + o.ID
}

// Order builds the order fulfilment workflow:
//
//	receive_order -> check_inventory
//	  sufficient   -> process_payment
//	    success      -> assign_logistics -> End
//	    failure      -> handle_payment_failure -> End
//	  insufficient -> inventory_alert -> End
func Order(c Collaborators) (*domain.Graph, error) {
	if err := c.check(OrderName); err != nil {
		return nil, err
	}
	stock := c.inventory()

	return flow.New(OrderName).
		Schema(OrderSchema).
		Step("receive_order", orderStep(receiveOrder)).
		Describe("receive_order", "Validate the order quantity").
		Step("check_inventory", orderStep(checkInventory(stock))).
		Describe("check_inventory", "Check the product is in stock").
		Step("process_payment", orderStep(processPayment)).
		Describe("process_payment", "Charge the order; even quantities succeed").
		Step("assign_logistics", orderStep(assignLogistics)).
		Describe("assign_logistics", "Hand the paid order to logistics").
		Step("inventory_alert", inventoryAlert(c, stock)).
		Describe("inventory_alert", "Alert the warehouse about missing stock").
		Step("handle_payment_failure", orderStep(handlePaymentFailure)).
		Describe("handle_payment_failure", "Flag the order for manual follow-up").
		Entry("receive_order").
		Edge("receive_order", "check_inventory").
		Branch("check_inventory",
			flow.Predicate("route_after_inventory", func(s *domain.State) bool {
				return s.Bool("inventory_sufficient")
			}, "sufficient", "insufficient"),
			flow.Routes{
				"sufficient":   "process_payment",
				"insufficient": "inventory_alert",
			}).
		Branch("process_payment",
			flow.Predicate("route_after_payment", func(s *domain.State) bool {
				return s.Bool("payment_success")
			}, "success", "failure"),
			flow.Routes{
				"success": "assign_logistics",
				"failure": "handle_payment_failure",
			}).
		Edge("assign_logistics", flow.End).
		Edge("inventory_alert", flow.End).
		Edge("handle_payment_failure", flow.End).
		Build()
}

// orderStep adapts a pure function of the order to a StepFunc.
func orderStep(fn func(order) domain.Delta) domain.StepFunc {
	return func(_ context.Context, s *domain.State) (domain.Delta, error) {
		var o order
		if err := s.Decode(&o); err != nil {
			return nil, err
		}
		return fn(o), nil
	}
}

func receiveOrder(o order) domain.Delta {
	if o.Quantity > 0 {
		return domain.Delta{"is_valid": true, "message": o.label() + " validated"}
	}
	return domain.Delta{"is_valid": false, "message": fmt.Sprintf("%s has an invalid quantity %d", o.label(), o.Quantity)}
}

func checkInventory(stock map[string]int) func(order) domain.Delta {
	return func(o order) domain.Delta {
		if !o.Valid {
			return domain.Delta{"inventory_sufficient": false, "message": o.label() + " is invalid, inventory check skipped"}
		}
		if o.Quantity <= stock[o.ProductID] {
			return domain.Delta{"inventory_sufficient": true, "message": "inventory sufficient"}
		}
		return domain.Delta{"inventory_sufficient": false, "message": "insufficient inventory"}
	}
}

func processPayment(o order) domain.Delta {
	if o.Quantity%2 == 0 {
		return domain.Delta{"payment_success": true, "message": "payment succeeded"}
	}
	return domain.Delta{"payment_success": false, "message": "payment failed"}
}

func assignLogistics(o order) domain.Delta {
	return domain.Delta{"logistics_assigned": true, "message": "logistics assigned to " + o.label()}
}

func handlePaymentFailure(o order) domain.Delta {
	return domain.Delta{"message": fmt.Sprintf("payment failure handled for %s, manual follow-up required", o.label())}
}

// inventoryAlert notifies the warehouse. A failed alert is reported in the
// message; the order outcome is unchanged.
func inventoryAlert(c Collaborators, stock map[string]int) domain.StepFunc {
	return func(ctx context.Context, s *domain.State) (domain.Delta, error) {
		var o order
		if err := s.Decode(&o); err != nil {
			return nil, err
		}
		if !o.Valid {
			return domain.Delta{"message": o.label() + " rejected: quantity must be positive"}, nil
		}

		summary := fmt.Sprintf("insufficient inventory for %s: %d requested, %d in stock",
			o.ProductID, o.Quantity, stock[o.ProductID])
		subject := "Inventory alert: " + o.ProductID
		if err := c.Notifier.Send(ctx, InventoryAlertRecipient, subject, summary+"\n"); err != nil {
			return domain.Delta{"message": fmt.Sprintf("%s; alert not delivered: %v", summary, err)}, nil
		}
		return domain.Delta{"message": summary + "; alert raised"}, nil
	}
}
