package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trust-ride/trust_ride/internal/auth"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	maxIdempotencyKeyLen = 128
	idempotencyTimeout   = 2 * time.Second
)

type storedResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
}

type idempotencyStore struct {
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func (s idempotencyStore) withTimeout(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyTimeout)
	defer cancel()
	return fn(ctx)
}

func (s idempotencyStore) lookup(key string) (storedResponse, bool, error) {
	var raw string
	err := s.withTimeout(func(ctx context.Context) error {
		var err error
		raw, err = s.cache.Get(ctx, key).Result()
		return err
	})
	switch {
	case errors.Is(err, redis.Nil):
		return storedResponse{}, false, nil
	case err != nil:
		return storedResponse{}, false, err
	case raw == inProgressMarker:
		return storedResponse{}, true, fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return storedResponse{}, true, fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	return stored, true, nil
}

// reserve claims the key. It reports false when another request got there first.
func (s idempotencyStore) reserve(key string) (bool, error) {
	var ok bool
	err := s.withTimeout(func(ctx context.Context) error {
		var err error
		ok, err = s.cache.SetNX(ctx, key, inProgressMarker, s.ttl).Result()
		return err
	})
	return ok, err
}

func (s idempotencyStore) persist(key string, stored storedResponse) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.withTimeout(func(ctx context.Context) error {
		return s.cache.Set(ctx, key, payload, s.ttl).Err()
	})
}

func (s idempotencyStore) release(key string) {
	_ = s.withTimeout(func(ctx context.Context) error {
		return s.cache.Del(ctx, key).Err()
	})
}

// Idempotency replays the stored response for unsafe requests that repeat an
// Idempotency-Key on the same path. Requests without the header pass through.
// Keys are scoped to the caller when authenticated, and a key reused with a
// different body is rejected with 422.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	store := idempotencyStore{cache: cache, ttl: ttl, logger: logger}
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		switch method {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "idempotency key too long")
		}
		if claims, ok := auth.ClaimsFrom(c); ok {
			key = strconv.FormatInt(claims.UserID, 10) + ":" + key
		}
		cacheKey := idempotencyPrefix + method + ":" + c.Path() + ":" + key
		sum := sha256.Sum256(c.Body())
		fingerprint := hex.EncodeToString(sum[:])

		stored, found, err := store.lookup(cacheKey)
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return fe
			}
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if found {
			if stored.Fingerprint != fingerprint {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "idempotency key reused with a different request")
			}
			for header, value := range stored.Headers {
				if skipReplayHeader(header) {
					continue
				}
				c.Set(header, value)
			}
			c.Set("Idempotent-Replayed", "true")
			return c.Status(stored.Status).SendString(stored.Body)
		}

		reserved, err := store.reserve(cacheKey)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		// Failed requests are not cached.
		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}

		stored = storedResponse{
			Fingerprint: fingerprint,
			Status:      c.Response().StatusCode(),
			Body:        string(c.Response().Body()),
			Headers:     map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			if !skipReplayHeader(string(k)) {
				stored.Headers[string(k)] = string(v)
			}
		})

		if err := store.persist(cacheKey, stored); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			store.release(cacheKey)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency persistence failure")
		}
		return nil
	}
}

// skipReplayHeader reports headers that belong to the current request and
// are never taken from a stored response.
func skipReplayHeader(header string) bool {
	return strings.EqualFold(header, fiber.HeaderContentLength) || strings.EqualFold(header, requestIDHeader)
}
