package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgeting/internal/cli"
	apphttp "budgeting/internal/http"
	"budgeting/internal/log"
	"budgeting/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting budgetd", "port", cfg.Port, "backend", cfg.DataBackend)

	result := cli.OpenBackend(context.Background(), logger, cfg)
	defer cli.CloseBackend(logger, result)
	b := result.Backend

	b.Caches.StartCleanup(10 * time.Minute)
	srv := apphttp.NewServer(":"+cfg.Port, b, logger, apphttp.Options{})
	sweeper := cli.NewSweeper(b, cfg)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.Warn("Sweeper shutdown error", "error", err)
		}
		b.Caches.Stop()
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if b.AMQP != nil {
		handlers := worker.NewScheduleWorker(b.Engine, b.Reports, b.Exporter).Handlers()
		g.Go(func() error {
			err := b.AMQP.Consume(gctx, handlers)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled, schedules are generated inline")
	}

	if err := sweeper.Start(gctx); err != nil {
		logger.Error("Failed to start schedule sweeper", "error", err)
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", "error", err)
		cli.CloseBackend(logger, result)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("budgetd stopped gracefully")
}
