package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/auth"
)

func newAuthenticator(t *testing.T) (*Authenticator, string) {
	t.Helper()
	issuer, err := auth.NewIssuer("test-secret", auth.DefaultTokenTTL)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	token, err := issuer.Issue(auth.Claims{UserID: 42, Email: "ann@x.com", Name: "Ann"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return NewAuthenticator(issuer), token
}

func TestIdentify(t *testing.T) {
	a, token := newAuthenticator(t)

	claims, ok := a.Identify("Bearer " + token)
	if !ok || claims.UserID != 42 || claims.Email != "ann@x.com" {
		t.Fatalf("expected identity, got %+v %v", claims, ok)
	}
	for _, header := range []string{"", "Bearer", "Bearer ", "Basic " + token, token, "Bearer not-a-token"} {
		if _, ok := a.Identify(header); ok {
			t.Fatalf("header %q should not identify", header)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	a, token := newAuthenticator(t)
	app := fiber.New()
	app.Get("/me", a.RequireAuth(), func(c *fiber.Ctx) error {
		claims, _ := auth.ClaimsFrom(c)
		return c.JSON(fiber.Map{"id": claims.UserID})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || out["id"] != 42 {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, out)
	}
}
