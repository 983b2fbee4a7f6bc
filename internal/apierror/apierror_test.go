package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/logging"
)

func decode(t *testing.T, app *fiber.App, path string) (int, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func TestHandlerRendersJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler(logging.Discard())})
	app.Get("/field", func(c *fiber.Ctx) error { return Validation("email", "invalid email format") })
	app.Get("/forbidden", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusForbidden, "access denied") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: connection refused at 10.0.0.3") })
	app.Get("/unavailable", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusServiceUnavailable, "google sign-in is not configured")
	})

	status, out := decode(t, app, "/field")
	if status != fiber.StatusBadRequest || out["field"] != "email" || out["error"] != "invalid email format" {
		t.Fatalf("unexpected field error response %d %v", status, out)
	}

	status, out = decode(t, app, "/forbidden")
	if status != fiber.StatusForbidden || out["error"] != "access denied" {
		t.Fatalf("unexpected forbidden response %d %v", status, out)
	}

	status, out = decode(t, app, "/boom")
	if status != fiber.StatusInternalServerError || out["error"] != internalMessage {
		t.Fatalf("internal error leaked: %d %v", status, out)
	}

	status, out = decode(t, app, "/unavailable")
	if status != fiber.StatusServiceUnavailable || out["error"] != "google sign-in is not configured" {
		t.Fatalf("unexpected 503 response %d %v", status, out)
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("password", "too short"), fiber.StatusBadRequest},
		{fmt.Errorf("signup: %w", Validation("email", "taken")), fiber.StatusBadRequest},
		{fiber.NewError(fiber.StatusForbidden, "access denied"), fiber.StatusForbidden},
		{fiber.ErrTooManyRequests, fiber.StatusTooManyRequests},
		{errors.New("connection reset"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
