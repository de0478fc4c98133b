package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned when the bearer token is not a parseable JWT.
var ErrMalformed = errors.New("malformed token")

// Claims is the subset of backend token claims the client inspects locally.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect decodes the claims of a bearer token without verifying its
// signature. The backend remains the only verifier; the client only peeks at
// expiry and identity hints to avoid round-trips that are certain to fail.
func Inspect(raw string) (Claims, error) {
	parser := jwt.NewParser()

	var mc jwt.MapClaims
	if _, _, err := parser.ParseUnverified(raw, &mc); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var claims Claims
	if sub, err := mc.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if role, ok := mc["role"].(string); ok {
		claims.Role = role
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// Expired reports whether the token is certainly unusable at the given
// instant: it expires within the skew window. Tokens without an exp claim
// and unparseable tokens report false — only the backend can judge them.
func Expired(raw string, skew time.Duration, now time.Time) bool {
	claims, err := Inspect(raw)
	if err != nil {
		return false
	}
	if claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(claims.ExpiresAt)
}
