// Package main is the entry point for the simulated trading backend.
// Startup sequence: configuration, logging, databases (with
// migrations), DI container, stock seeding, background jobs, HTTP
// server, then graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/faketrading/backend/internal/config"
	"github.com/faketrading/backend/internal/di"
	"github.com/faketrading/backend/internal/modules/market"
	"github.com/faketrading/backend/internal/scheduler"
	"github.com/faketrading/backend/internal/server"
	"github.com/faketrading/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting trading backend")

	container, err := di.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build container")
	}
	defer container.Close()

	// First boot gets the fixed stock list with jittered prices
	if err := market.SeedIfEmpty(container.StockRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed stocks")
	}

	sched := scheduler.New(log)
	if err := container.RegisterJobs(sched, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()

	srv := server.New(cfg, container, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	sched.Stop()

	log.Info().Msg("Shutdown complete")
}
