// Package observability initializes OpenTelemetry tracing and metrics with
// OTLP HTTP exporters, and exposes the instruments the storefront core
// records: guard verification outcomes, eviction attempts, cart refreshes,
// and HTTP request durations.
package observability
