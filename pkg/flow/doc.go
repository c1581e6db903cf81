/*
Package flow provides a fluent builder for workflow graphs.

A graph is a set of named steps, one outgoing edge per step and an entry
point. Edges are either fixed or resolved at run time by a router whose
possible outcomes are declared up front, so Build can prove every outcome
leads somewhere.

Example usage:

	g, err := flow.New("greeting").
		Schema(schema.MustNew(
			schema.Field{Name: "name", Type: schema.String()},
			schema.Field{Name: "polite", Type: schema.Bool(), Default: true},
		)).
		Step("ask", askName).
		Step("greet", greet).
		Step("shrug", shrug).
		Entry("ask").
		Branch("ask", flow.Router("has_name", hasName, "yes", "no"), flow.Routes{
			"yes": "greet",
			"no":  "shrug",
		}).
		Edge("greet", flow.End).
		Edge("shrug", flow.End).
		Build()

Build returns a *domain.ConfigurationError listing every problem at once.
*/
package flow
