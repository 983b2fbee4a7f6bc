package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/alerts"
	"github.com/trust-ride/trust_ride/internal/explorer"
	"github.com/trust-ride/trust_ride/internal/rides"
)

// RegisterRideRoutes wires booking and ride lookups.
func RegisterRideRoutes(r fiber.Router, h *rides.Handler) {
	group := r.Group("/rides")
	group.Post("/book", h.Book)
	group.Get("/history", h.History)
	group.Get("/:id", h.Get)
}

// RegisterAlertRoutes wires safety alert endpoints.
func RegisterAlertRoutes(r fiber.Router, h *alerts.Handler) {
	r.Post("/alerts/panic", h.Panic)
	r.Get("/alerts", h.List)
}

// RegisterExplorerRoutes wires the verification log explorer.
func RegisterExplorerRoutes(r fiber.Router, h *explorer.Handler) {
	r.Get("/blockchain/logs", h.Logs)
}
