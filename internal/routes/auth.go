package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/auth"
)

// RegisterAuthRoutes wires public authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, idempotent fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", idempotent, h.Signup)
	group.Post("/login", rateLimiter, h.Login)
	group.Post("/google", rateLimiter, h.Google)
}

// RegisterProfileRoute wires the authenticated profile update.
func RegisterProfileRoute(r fiber.Router, h *auth.Handler) {
	r.Put("/auth/profile", h.UpdateProfile)
}
