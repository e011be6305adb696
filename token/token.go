package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerPrefix is the transport prefix some servers echo back with the token.
const BearerPrefix = "Bearer "

// ErrMalformed is returned when a credential has the shape of a JWT but its
// header or claims cannot be decoded.
var ErrMalformed = errors.New("malformed token")

// Claims is the claim set the lending API puts in its access tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Metadata is what can be learned about a credential locally.
//
// Opaque credentials (anything that is not a three-segment JWT) carry no
// metadata and never expire locally.
type Metadata struct {
	Opaque    bool
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Strip removes a redundant "Bearer " prefix and surrounding whitespace.
func Strip(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= len(BearerPrefix) && strings.EqualFold(raw[:len(BearerPrefix)], BearerPrefix) {
		raw = strings.TrimSpace(raw[len(BearerPrefix):])
	}
	return raw
}

// Inspect decodes the claims of raw without verifying its signature.
func Inspect(raw string) (Metadata, error) {
	raw = Strip(raw)
	if raw == "" {
		return Metadata{}, ErrMalformed
	}
	if strings.Count(raw, ".") != 2 {
		return Metadata{Opaque: true}, nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Metadata{}, errors.Join(ErrMalformed, err)
	}

	md := Metadata{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		md.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		md.ExpiresAt = claims.ExpiresAt.Time
	}
	return md, nil
}

// Expired reports whether now is at or past the expiry instant, extended by
// leeway. A credential without an exp claim never expires.
func (m Metadata) Expired(now time.Time, leeway time.Duration) bool {
	if m.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(m.ExpiresAt.Add(leeway))
}

// Remaining returns how long the credential stays valid, or zero when it
// is expired. ok is false when the credential carries no expiry.
func (m Metadata) Remaining(now time.Time) (d time.Duration, ok bool) {
	if m.ExpiresAt.IsZero() {
		return 0, false
	}
	d = m.ExpiresAt.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
