package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgeting/internal/cli"
	"budgeting/internal/log"
	"budgeting/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting schedule-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the schedule worker")
		os.Exit(1)
	}

	result := cli.OpenBackend(context.Background(), logger, cfg)
	defer cli.CloseBackend(logger, result)
	b := result.Backend
	if b.AMQP == nil {
		logger.Error("AMQP broker unreachable, refusing to start")
		cli.CloseBackend(logger, result)
		os.Exit(1)
	}

	sweeper := cli.NewSweeper(b, cfg)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			logger.Warn("Sweeper shutdown error", "error", err)
		}
	})

	// pick up commitments whose request was lost while no worker ran
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start schedule sweeper", "error", err)
	}

	w := worker.NewScheduleWorker(b.Engine, b.Reports, b.Exporter)
	logger.Info("Consuming schedule requests",
		"queue", cfg.AMQPQueue,
		"export_enabled", b.Exporter != nil)
	if err := b.AMQP.Consume(ctx, w.Handlers()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		cli.CloseBackend(logger, result)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Schedule-worker shutdown complete")
}
