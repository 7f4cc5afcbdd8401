package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether token is a JWT with an exp claim in the
// past. The client holds no signing key, so the parse is unverified and
// only used to avoid bootstrapping with a token the server will reject.
// Opaque tokens and JWTs without an exp claim pass through untouched.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}
