// Package api binds the lending back-office REST API: authentication,
// clients, credits, repayments and reporting.
//
// A [Client] issues requests through whatever [net/http.Client] it is given.
// The session manager hands it one whose transport attaches the bearer
// credential and translates authorization faults, so services here never
// see tokens.
//
// Every non-2xx response surfaces as an [*Error] carrying a display-ready
// message; [errors.Is] classifies it against [ErrUnauthorized],
// [ErrForbidden], [ErrNotFound], [ErrBadRequest] and [ErrServer]. Request
// payloads are validated locally first and fail with [ErrValidation]
// without touching the network.
package api
