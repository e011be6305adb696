package transport

import (
	"context"
	"net/http"
	"time"
)

type skipFaultsKey struct{}

// SkipFaults marks requests made with ctx as exempt from fault translation.
// The login call uses it so a rejected password cannot end the current
// session.
func SkipFaults(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipFaultsKey{}, true)
}

// FaultsSkipped reports whether ctx was produced by [SkipFaults].
func FaultsSkipped(ctx context.Context) bool {
	v, _ := ctx.Value(skipFaultsKey{}).(bool)
	return v
}

// FaultHandler reacts to authorization faults.
type FaultHandler interface {
	// Unauthorized is called for a 401 response. req is the request as sent.
	Unauthorized(req *http.Request)
	// Forbidden is called for a 403 response.
	Forbidden(req *http.Request)
}

// CompletionObserver is an optional extension of [FaultHandler] notified
// after every round trip, translated or not.
type CompletionObserver interface {
	Completed(req *http.Request, status int, err error, elapsed time.Duration)
}

// FaultTranslator is an [http.RoundTripper] that reports 401/403 responses
// to Handler. Responses are always returned to the caller as received.
type FaultTranslator struct {
	Next    http.RoundTripper
	Handler FaultHandler
	Now     func() time.Time
}

// RoundTrip implements [http.RoundTripper].
func (f *FaultTranslator) RoundTrip(req *http.Request) (*http.Response, error) {
	next := f.Next
	if next == nil {
		next = http.DefaultTransport
	}
	now := f.Now
	if now == nil {
		now = time.Now
	}

	start := now()
	resp, err := next.RoundTrip(req)
	elapsed := now().Sub(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if obs, ok := f.Handler.(CompletionObserver); ok {
		obs.Completed(req, status, err, elapsed)
	}
	if err != nil || f.Handler == nil || FaultsSkipped(req.Context()) {
		return resp, err
	}

	// resp.Request is the request the inner transport actually sent, which
	// carries the attached credential.
	sent := req
	if resp.Request != nil {
		sent = resp.Request
	}
	switch status {
	case http.StatusUnauthorized:
		f.Handler.Unauthorized(sent)
	case http.StatusForbidden:
		f.Handler.Forbidden(sent)
	}
	return resp, nil
}

// New stacks fault translation over credential attachment over base.
// A nil base means [http.DefaultTransport].
func New(base http.RoundTripper, tokens TokenSource, handler FaultHandler) http.RoundTripper {
	return &FaultTranslator{
		Next:    &Authorizer{Next: base, Tokens: tokens},
		Handler: handler,
	}
}
