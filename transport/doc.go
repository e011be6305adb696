// Package transport decorates outbound API requests and translates
// authorization faults in their responses.
//
// # Round trippers
//
//   - [Authorizer] attaches "Authorization: Bearer <token>" to every
//     non-OPTIONS request and stamps an X-Request-ID.
//   - [FaultTranslator] reports 401 and 403 responses to a [FaultHandler]
//     and passes every response through unchanged.
//
// [New] stacks both over a base transport.
//
// # Architecture boundaries
//
// This package only sees HTTP. What a 401 means for session state is the
// handler's decision; this package never stores credentials.
//
// # What this package must NOT do
//
//   - Retry requests.
//   - Rewrite response bodies or status codes.
//   - Import lendconsole (the manager plugs in through [TokenSource] and
//     [FaultHandler]).
package transport
