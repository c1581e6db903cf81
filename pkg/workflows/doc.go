/*
Package workflows ships the demo graphs that run on the engine.

  - weekday-email: reads the weekday and a random number, then mails John a
    welcome or Tom a goodbye.
  - order-flow: validates an order, checks stock, takes payment and assigns
    logistics.
  - weather-email: on Wednesdays, looks up coordinates and the weather and,
    when it is sunny, mails a welcome or a goodbye by the drawn number.

Every builder receives its side effects through Collaborators, so tests run
the same graphs against fixed clocks, scripted random numbers and an outbox.
A failing collaborator never fails the run: the failure text lands in the
"message" field and the workflow keeps routing on data.
*/
package workflows
