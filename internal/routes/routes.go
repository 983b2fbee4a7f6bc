package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/trust-ride/trust_ride/internal/alerts"
	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/chain"
	"github.com/trust-ride/trust_ride/internal/config"
	"github.com/trust-ride/trust_ride/internal/explorer"
	"github.com/trust-ride/trust_ride/internal/fleet"
	"github.com/trust-ride/trust_ride/internal/identity"
	"github.com/trust-ride/trust_ride/internal/infra"
	"github.com/trust-ride/trust_ride/internal/metrics"
	"github.com/trust-ride/trust_ride/internal/middleware"
	"github.com/trust-ride/trust_ride/internal/notification"
	"github.com/trust-ride/trust_ride/internal/rides"
	"github.com/trust-ride/trust_ride/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	MQ      *infra.RabbitMQ
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Google is nil when sign-in with Google is not configured.
	Google auth.GoogleVerifier
	// AccessLog enables the plain text access log.
	AccessLog bool
}

// Setup configures middlewares and all application routes. The returned
// verifier must be run for pending verifications to settle.
func Setup(app *fiber.App, d Deps) (*verification.Verifier, error) {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.AccessLog {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(d.Metrics.Middleware())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	// Stores
	var (
		userRepo   identity.Repository
		driverRepo fleet.Repository
		rideRepo   rides.Repository
		alertRepo  alerts.Repository
		logRepo    chain.Repository
		queue      verification.Queue
	)
	if d.DB != nil {
		userRepo = identity.NewPostgresRepository(d.DB)
		driverRepo = fleet.NewPostgresRepository(d.DB)
		rideRepo = rides.NewPostgresRepository(d.DB)
		alertRepo = alerts.NewPostgresRepository(d.DB)
		logRepo = chain.NewPostgresRepository(d.DB)
	} else {
		userRepo = identity.NewMemoryRepository()
		driverRepo = fleet.NewMemoryRepository(fleet.SeedDrivers()...)
		rideRepo = rides.NewMemoryRepository()
		alertRepo = alerts.NewMemoryRepository()
		logRepo = chain.NewMemoryRepository(chain.SeedDriverLogs()...)
	}
	if d.Cache != nil {
		queue = verification.NewRedisQueue(d.Cache, 0)
	} else {
		queue = verification.NewMemoryQueue()
	}

	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.MQ != nil {
		notifiers = append(notifiers, notification.NewAMQPNotifier(d.MQ))
	}

	// Services and handlers
	tokens, err := auth.NewIssuer(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	sim := verification.Simulator{
		MinDelay:    d.Cfg.Verification.MinDelay,
		MaxDelay:    d.Cfg.Verification.MaxDelay,
		SuccessRate: d.Cfg.Verification.SuccessRate,
	}
	verifier := verification.NewVerifier(queue, logRepo, sim, notifiers, d.Metrics, d.Logger,
		verification.Options{Workers: d.Cfg.Verification.Workers})

	identitySvc := identity.NewService(userRepo, identity.NewHasher(d.Cfg.BcryptCost))
	rideSvc := rides.NewService(rideRepo, driverRepo, logRepo, verifier, rides.RandomFare, d.Logger)
	alertSvc := alerts.NewService(alertRepo, logRepo, verifier, identitySvc, rideSvc, notifiers, d.Logger)
	explorerSvc := explorer.NewService(logRepo, driverRepo, rideRepo, alertRepo)

	authHandler := auth.NewHandler(identitySvc, tokens, d.Google, d.Logger)
	rideHandler := rides.NewHandler(rideSvc)
	alertHandler := alerts.NewHandler(alertSvc)
	explorerHandler := explorer.NewHandler(explorerSvc)
	authenticator := middleware.NewAuthenticator(tokens)

	// Page routes
	app.Use(middleware.PageGuard(authenticator))
	RegisterPageRoutes(app)

	// API routes
	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	idempotent := func(c *fiber.Ctx) error { return c.Next() }
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// Public routes
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter, idempotent)

	// Protected routes
	protected := api.Group("", authenticator.RequireAuth(), idempotent)
	RegisterProfileRoute(protected, authHandler)
	RegisterRideRoutes(protected, rideHandler)
	RegisterAlertRoutes(protected, alertHandler)
	RegisterExplorerRoutes(protected, explorerHandler)

	return verifier, nil
}
