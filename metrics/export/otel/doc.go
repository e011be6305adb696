// Package otel binds console metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per console counter
// and an Int64ObservableGauge per latency bucket. One callback reads
// [lendconsole.Manager.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate session state.
package otel
