package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/auth"
)

const (
	// SessionCookie carries the session token for page requests.
	SessionCookie = "trust-ride-token"
	loginPath     = "/auth/login"
)

var protectedPages = []string{"/dashboard", "/profile", "/ride", "/alerts", "/blockchain"}

// PageGuard redirects unauthenticated page requests to the login page. API
// routes are left to RequireAuth.
func PageGuard(a *Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if underPrefix(path, "/api") || !isProtectedPage(path) {
			return c.Next()
		}

		var (
			claims auth.Claims
			ok     bool
		)
		if header := c.Get(fiber.HeaderAuthorization); hasBearer(header) {
			claims, ok = a.Identify(header)
		} else {
			claims, ok = a.verify(c.Cookies(SessionCookie))
		}
		if !ok {
			return c.Redirect(loginPath, fiber.StatusFound)
		}

		c.Set("X-User-Id", strconv.FormatInt(claims.UserID, 10))
		c.Set("X-User-Email", claims.Email)
		return c.Next()
	}
}

func isProtectedPage(path string) bool {
	for _, prefix := range protectedPages {
		if underPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// underPrefix matches whole path segments, so /ride covers /ride/7 but not /rides-info.
func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func hasBearer(header string) bool {
	return len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix)
}
