// Package store persists the console's credential and cached profile as
// plain key/value strings.
//
// Three backends satisfy [Store]: [Memory] for tests and one-shot runs,
// [File] for a single workstation, and [Redis] for consoles that share one
// login across hosts.
//
// # Architecture boundaries
//
// Values are opaque strings. The store never decodes tokens or profiles and
// never decides whether a session is valid.
//
// # What this package must NOT do
//
//   - Import lendconsole, token, or api (no upward imports).
//   - Log stored values.
package store
