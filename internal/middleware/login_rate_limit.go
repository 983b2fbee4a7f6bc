package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const loginWindow = time.Minute

// LoginRateLimit allows maxPerMin attempts per route and email, or per IP
// when no email is given. It is a no-op without Redis and fails open on
// cache errors.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = "ip:" + c.IP()
		}
		key := "rl:" + strings.Trim(c.Path(), "/") + ":" + subject

		ctx := c.UserContext()
		count, err := cache.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			cache.Expire(ctx, key, loginWindow)
		}
		if count <= int64(maxPerMin) {
			return c.Next()
		}

		retry := loginWindow
		if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			retry = ttl
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
}
