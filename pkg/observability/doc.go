/*
Package observability turns engine lifecycle events into signals.

Metrics exports Prometheus counters and histograms, LoggingHooks writes one
structured line per event and Recorder keeps the events of recent runs in
memory. Combine fans a single LifecycleHooks value out to several of them.
*/
package observability
