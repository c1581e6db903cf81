/*
Package definition declares graphs as data.

A document names the steps and routers it needs; Compile resolves them in a
registry and validates the result like any hand-built graph:

	name: small-order
	entry: receive_order
	state:
	  quantity: int
	  product_id: string
	  is_valid: bool
	  message: string
	steps:
	  - name: receive_order
	    use: order-flow.receive_order
	edges:
	  - from: receive_order
	    to: __end__
*/
package definition
