// Package guard decides whether the console may open a route.
//
// [Authenticated] and [RequireRoles] are the two guards. A [Table] maps
// route patterns to guards and resolves the most specific match, and
// [Middleware] adapts a table to net/http.
//
// # Architecture boundaries
//
// Guards read session state through [Authority] and return a [Decision].
// They never navigate, persist, or call the API themselves.
package guard
