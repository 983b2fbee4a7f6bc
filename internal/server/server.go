package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trust-ride/trust_ride/internal/apierror"
	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/config"
	"github.com/trust-ride/trust_ride/internal/infra"
	"github.com/trust-ride/trust_ride/internal/metrics"
	"github.com/trust-ride/trust_ride/internal/routes"
	"github.com/trust-ride/trust_ride/internal/verification"
)

// Server wraps the Fiber application and the background verifier.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	verifier *verification.Verifier
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// google may be nil when sign-in with Google is not configured.
func New(cfg config.Config, res *infra.Resources, google auth.GoogleVerifier, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: apierror.Handler(logger),
	})

	deps := routes.Deps{
		Cfg:       cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		Google:    google,
		AccessLog: true,
	}
	if res != nil {
		deps.DB, deps.Cache, deps.MQ = res.DB, res.Cache, res.MQ
	}

	verifier, err := routes.Setup(app, deps)
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, verifier: verifier}, nil
}

// RunVerifier settles submitted verifications until ctx is cancelled.
func (s *Server) RunVerifier(ctx context.Context) error {
	return s.verifier.Run(ctx)
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
