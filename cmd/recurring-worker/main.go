package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"expentrax/internal/backend"
	"expentrax/internal/cli"
	"expentrax/internal/log"

	"golang.org/x/sync/errgroup"
)

const cacheCleanupInterval = 5 * time.Minute

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentScheduler)
	if err != nil {
		log.New(log.DefaultConfig()).Error("Startup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting recurring-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := backend.NewFactory(logger.Logger).Build(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close resources", "error", err)
		}
	}()

	scheduler, err := app.Scheduler(cfg)
	if err != nil {
		logger.Error("Failed to configure scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("Scheduler configured",
		"run_at", cfg.SchedulerRunAt,
		"timezone", cfg.SchedulerTimezone,
		"run_on_start", cfg.SchedulerRunOnStart,
		"next_run", scheduler.NextRun(time.Now()),
		"amqp_enabled", app.AMQP != nil,
		"sheets_enabled", app.Mirror != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return app.Caches.Run(gctx, cacheCleanupInterval) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring-worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Recurring-worker shutdown complete")
}
