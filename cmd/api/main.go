package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/trust-ride/trust_ride/internal/auth"
	"github.com/trust-ride/trust_ride/internal/config"
	"github.com/trust-ride/trust_ride/internal/infra"
	"github.com/trust-ride/trust_ride/internal/logging"
	"github.com/trust-ride/trust_ride/internal/notification"
	"github.com/trust-ride/trust_ride/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName)

	ctx := context.Background()

	res, err := infra.Open(ctx, infra.Endpoints{
		AppName:     cfg.AppName,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		AMQPURL:     cfg.AMQPURL,
		Exchanges:   []string{notification.Exchange},
	}, logger)
	if err != nil {
		logger.Error("connect backing services", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("close backing services", "error", err)
		}
	}()
	if res.DB == nil {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var google auth.GoogleVerifier
	if cfg.GoogleClientID != "" {
		google, err = auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			logger.Error("google sign-in", "error", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, res, google, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- srv.RunVerifier(workerCtx)
	}()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	stopWorkers()
	if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("verifier stopped", "error", err)
	}

	logger.Info("server exited cleanly")
}
