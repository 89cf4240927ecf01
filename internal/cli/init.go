// Package cli provides common CLI initialization utilities.
// It gathers the startup steps shared by cmd/budgetd, cmd/schedule-worker
// and cmd/seed-taxonomy.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgeting/internal/backend"
	"budgeting/internal/config"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

// SetupLogger initializes structured text logging on stdout at the
// configured level and installs it as the default logger.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Component: component,
		Format:    "text",
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads the .env file and the configuration, sets up
// logging for component and validates. It exits the process on validation failure.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenBackend builds the backend described by cfg or exits the process.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// CloseBackend runs the backend cleanup, logging failures.
func CloseBackend(logger *log.Logger, result *backend.BackendResult) {
	if result == nil || result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
}

// NewSweeper builds the schedule sweeper from the sweep settings of cfg.
func NewSweeper(b *backend.Backend, cfg *config.Config) *services.ScheduleSweeper {
	sweepConfig := services.DefaultScheduleSweeperConfig()
	sweepConfig.PollInterval = cfg.SweepInterval
	sweepConfig.BatchSize = cfg.SweepBatchSize
	return services.NewScheduleSweeper(b.Repo, b.Engine, sweepConfig)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled once a shutdown signal arrives and
// cleanup has run; the channel closes when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and shutdown finished.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
