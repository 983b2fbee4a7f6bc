package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/auth"
)

const bearerPrefix = "bearer "

// Authenticator resolves request identities from bearer tokens.
type Authenticator struct {
	tokens *auth.Issuer
}

// NewAuthenticator builds an authenticator verifying tokens with tokens.
func NewAuthenticator(tokens *auth.Issuer) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Identify verifies an Authorization header value. Any malformed, expired
// or forged token yields false.
func (a *Authenticator) Identify(header string) (auth.Claims, bool) {
	if !hasBearer(header) {
		return auth.Claims{}, false
	}
	return a.verify(strings.TrimSpace(header[len(bearerPrefix):]))
}

func (a *Authenticator) verify(token string) (auth.Claims, bool) {
	if token == "" {
		return auth.Claims{}, false
	}
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return auth.Claims{}, false
	}
	return claims, true
}

// RequireAuth rejects requests without a valid bearer token and exposes the
// claims to downstream handlers through auth.ClaimsFrom.
func (a *Authenticator) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := a.Identify(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		auth.WithClaims(c, claims)
		return c.Next()
	}
}
