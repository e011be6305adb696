// Package token inspects bearer credentials issued by the lending API and
// reads their embedded expiry without a server round-trip.
//
// # Architecture boundaries
//
// Decoding is advisory. Signatures are never verified here: the issuing
// server owns integrity, and the only local consequence of a forged or
// expired credential is a redirect to the login route.
//
// # What this package must NOT do
//
//   - Perform I/O or persist credentials.
//   - Import lendconsole or any sibling package.
//   - Treat a decoded claim as an authorization decision.
package token
