package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	statusOK       = "ok"
	statusDisabled = "disabled"
)

type dependencyCheck struct {
	name    string
	enabled bool
	ping    func(ctx context.Context) error
}

func (d Deps) checks() []dependencyCheck {
	return []dependencyCheck{
		{name: "postgres", enabled: d.DB != nil, ping: func(ctx context.Context) error { return d.DB.Ping(ctx) }},
		{name: "redis", enabled: d.Cache != nil, ping: func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() }},
		{name: "rabbitmq", enabled: d.MQ != nil, ping: func(context.Context) error {
			if !d.MQ.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}},
	}
}

// RegisterHealthRoutes adds the readiness endpoint. Unconfigured backing
// services report "disabled" and do not fail the check.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	checks := d.checks()
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		code := http.StatusOK
		statuses := fiber.Map{}
		for _, check := range checks {
			if !check.enabled {
				statuses[check.name] = statusDisabled
				continue
			}
			if err := check.ping(ctx); err != nil {
				statuses[check.name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			statuses[check.name] = statusOK
		}

		return c.Status(code).JSON(fiber.Map{
			"status": statuses,
			"features": fiber.Map{
				"google_sign_in": d.Google != nil,
				"maps":           d.Cfg.GoogleMapsAPIKey != "",
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
