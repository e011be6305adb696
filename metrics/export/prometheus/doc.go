// Package prometheus exposes console metrics through client_golang.
//
// [NewPrometheusExporter] wraps a [lendconsole.Manager] in a collector
// registered on a private registry. Counter names are prefixed
// lendconsole_*_total; the single histogram is
// lendconsole_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount
//     the Handler or the Registry.
//   - Mutate session state.
package prometheus
