package routes

import (
	"github.com/gofiber/fiber/v2"
)

var pages = []string{"/dashboard", "/profile", "/ride", "/ride/*", "/alerts", "/blockchain"}

// RegisterPageRoutes serves the page shells behind the page guard and the
// login landing page. The UI itself is served separately.
func RegisterPageRoutes(app *fiber.App) {
	for _, path := range pages {
		app.Get(path, func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"page":    c.Path(),
				"user_id": c.GetRespHeader("X-User-Id"),
			})
		})
	}
	app.Get("/auth/login", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"page": "/auth/login"})
	})
}
