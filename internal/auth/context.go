package auth

import "github.com/gofiber/fiber/v2"

const claimsKey = "auth.claims"

// WithClaims stores the authenticated identity on the request.
func WithClaims(c *fiber.Ctx, claims Claims) {
	c.Locals(claimsKey, claims)
}

// ClaimsFrom returns the identity stored by the authentication middleware.
func ClaimsFrom(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(claimsKey).(Claims)
	return claims, ok && claims.UserID != 0
}
