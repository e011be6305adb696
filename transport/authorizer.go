package transport

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// TokenSource yields the current credential, if any.
type TokenSource interface {
	Token(ctx context.Context) (string, bool)
}

// TokenSourceFunc adapts a function to [TokenSource].
type TokenSourceFunc func(ctx context.Context) (string, bool)

// Token implements [TokenSource].
func (f TokenSourceFunc) Token(ctx context.Context) (string, bool) { return f(ctx) }

// StaticToken is a [TokenSource] that always returns the same credential.
type StaticToken string

// Token implements [TokenSource].
func (s StaticToken) Token(context.Context) (string, bool) { return string(s), s != "" }

// Authorizer is an [http.RoundTripper] that attaches the bearer credential.
// Preflight (OPTIONS) requests pass through untouched.
type Authorizer struct {
	Next   http.RoundTripper
	Tokens TokenSource
}

// RoundTrip implements [http.RoundTripper].
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	next := a.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if req.Method == http.MethodOptions {
		return next.RoundTrip(req)
	}

	var tok string
	if a.Tokens != nil {
		tok, _ = a.Tokens.Token(req.Context())
	}
	hasID := req.Header.Get(RequestIDHeader) != ""
	if tok == "" && hasID {
		return next.RoundTrip(req)
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	if tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	if !hasID {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return next.RoundTrip(out)
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || value[:len(bearer)] != bearer {
		return "", false
	}
	tok := value[len(bearer):]
	if tok == "" {
		return "", false
	}
	return tok, true
}
