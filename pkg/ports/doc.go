/*
Package ports defines the driven ports (interfaces) consumed by workflow steps
and by the engine facade.

Steps never reach for ambient globals: every external effect goes through one
of these interfaces, so tests can swap in deterministic fakes.

# Key Interfaces

  - Notifier: sends a message to a recipient (e.g. SMTP, an in-memory outbox).
  - Directory: looks up records by criteria (e.g. Postgres, Redis, memory).
  - Clock and RandomSource: time and entropy for steps that need them.
  - StateStore: checkpoints the final State of a run by correlation id.
  - DistributedLocker: serializes runs that share a correlation id across replicas.
*/
package ports
