package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints HS256 access tokens shaped like the lending API's. It backs
// fake servers and local tooling; production credentials always come from
// the real auth endpoint.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// IssuerConfig configures an [Issuer].
type IssuerConfig struct {
	Key    []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// NewIssuer validates cfg and returns an [Issuer].
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.Key) < 32 {
		return nil, errors.New("hs256 key must be at least 256 bits")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)
	return &Issuer{key: key, ttl: cfg.TTL, issuer: cfg.Issuer, now: cfg.Now}, nil
}

// Issue signs a token for subject carrying role.
func (i *Issuer) Issue(subject, role string) (string, error) {
	return i.IssueWithTTL(subject, role, i.ttl)
}

// IssueWithTTL signs a token whose exp lies ttl from now. A negative ttl
// yields an already expired token.
func (i *Issuer) IssueWithTTL(subject, role string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// Verify parses raw and checks its signature and expiry.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	tok, err := parser.ParseWithClaims(Strip(raw), claims, func(*jwt.Token) (interface{}, error) {
		return i.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
