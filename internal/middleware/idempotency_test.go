package middleware

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/logging"
)

func setupIdempotentApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	// X-Test-User stands in for RequireAuth.
	app.Use(func(c *fiber.Ctx) error {
		if id, err := strconv.ParseInt(c.Get("X-Test-User"), 10, 64); err == nil {
			auth.WithClaims(c, auth.Claims{UserID: id})
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	calls := 0
	app.Post("/rides/book", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ride": calls})
	})
	app.Post("/fail", func(c *fiber.Ctx) error {
		calls++
		return fiber.NewError(fiber.StatusNotFound, "no verified drivers available")
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, path, key, user, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload), resp.Header.Get("Idempotent-Replayed")
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	for i := 0; i < 2; i++ {
		if status, _, _ := post(t, app, "/rides/book", "", "", "{}"); status != fiber.StatusOK {
			t.Fatalf("expected 200 got %d", status)
		}
	}
	if *calls != 2 {
		t.Fatalf("handler should run for every request without a key, ran %d times", *calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	body := `{"pickup_location":"A","destination":"B"}`

	status, first, replayed := post(t, app, "/rides/book", "book-1", "1", body)
	if status != fiber.StatusOK || replayed != "" {
		t.Fatalf("first request: %d replayed=%q", status, replayed)
	}
	status, second, replayed := post(t, app, "/rides/book", "book-1", "1", body)
	if status != fiber.StatusOK || replayed != "true" {
		t.Fatalf("second request: %d replayed=%q", status, replayed)
	}
	if first != second {
		t.Fatalf("expected replayed body %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("handler should run once, ran %d times", *calls)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	post(t, app, "/rides/book", "book-1", "1", `{"destination":"B"}`)

	status, _, _ := post(t, app, "/rides/book", "book-1", "1", `{"destination":"C"}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for reused key, got %d", status)
	}
	if *calls != 1 {
		t.Fatalf("handler should not run for a mismatched body, ran %d times", *calls)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	post(t, app, "/rides/book", "same-key", "1", "{}")
	_, _, replayed := post(t, app, "/rides/book", "same-key", "2", "{}")
	if replayed != "" || *calls != 2 {
		t.Fatalf("another user's key must not replay, calls=%d replayed=%q", *calls, replayed)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	for i := 0; i < 2; i++ {
		if status, _, _ := post(t, app, "/fail", "retry-me", "1", "{}"); status != fiber.StatusNotFound {
			t.Fatalf("expected 404 got %d", status)
		}
	}
	if *calls != 2 {
		t.Fatalf("failed requests must be retried, ran %d times", *calls)
	}
}

func TestIdempotencyRejectsLongKey(t *testing.T) {
	app, calls := setupIdempotentApp(t)
	status, _, _ := post(t, app, "/rides/book", strings.Repeat("k", maxIdempotencyKeyLen+1), "", "{}")
	if status != fiber.StatusBadRequest || *calls != 0 {
		t.Fatalf("expected 400 without running handler, got %d calls=%d", status, *calls)
	}
}

func TestIdempotencyReplayKeepsFreshRequestID(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	app := fiber.New()
	app.Use(RequestID())
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/rides/book", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	send := func(reqID string) string {
		req := httptest.NewRequest(fiber.MethodPost, "/rides/book", strings.NewReader("{}"))
		req.Header.Set(idempotencyKeyHeader, "book-1")
		req.Header.Set(requestIDHeader, reqID)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.Header.Get(requestIDHeader)
	}

	if got := send("first-id"); got != "first-id" {
		t.Fatalf("expected first-id, got %q", got)
	}
	if got := send("second-id"); got != "second-id" {
		t.Fatalf("replayed response must carry the new request id, got %q", got)
	}
}
