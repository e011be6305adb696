// Package lendconsole is the session core of the lending back-office
// console: it logs operators in against the lending API, persists the
// bearer credential and profile, restores them at startup, and reacts to
// authorization faults on every API call.
//
// A [Manager] is built with [New] and is safe for concurrent use. Its
// [Manager.HTTPClient] and [Manager.API] attach the credential to each
// request and turn 401 responses into a logout and 403 responses into a
// redirect to the default route, reported through a [Navigator].
//
// # Architecture boundaries
//
// lendconsole owns session state only. Persistence lives in store,
// credential inspection in token, request decoration in transport, REST
// bindings in api and route decisions in guard. None of those packages
// import lendconsole.
//
// # What this package must NOT do
//
//   - Verify token signatures. Expiry is read from the unverified claims;
//     the server remains the authority.
//   - Retry requests or refresh credentials. An expired session ends.
//   - Hold its mutex across network calls. Only store reads and writes
//     happen under the lock.
package lendconsole
