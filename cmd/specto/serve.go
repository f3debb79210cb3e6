package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/specto/internal/pipeline"
	"github.com/ternarybob/specto/internal/server"
	"github.com/ternarybob/specto/internal/services/scheduler"
)

// runServe starts the dashboard server and, when a cron schedule is
// configured, the in-process report scheduler. Returns the process exit code.
func runServe() int {
	ctx := context.Background()

	p, err := pipeline.NewFromConfig(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble report pipeline")
		return 1
	}
	defer p.Close()

	// Dashboard reads go through the same aggregator the scheduled runs use.
	cache := server.NewSnapshotCache(p.Aggregator(), server.DefaultCacheTTL)

	var sched *scheduler.Service
	if config.Schedule.Cron != "" {
		sched = scheduler.NewService(func(runCtx context.Context) error {
			runCtx, cancel := context.WithTimeout(runCtx, runTimeout)
			defer cancel()
			_, err := p.Run(runCtx)
			return err
		}, logger)

		if err := sched.Start(config.Schedule.Cron); err != nil {
			logger.Error().Err(err).Str("schedule", config.Schedule.Cron).Msg("Failed to start scheduler")
			return 1
		}
		defer sched.Stop()

		logger.Info().Str("schedule", config.Schedule.Cron).Msg("Report scheduler started")
	} else {
		logger.Info().Msg("No schedule configured, reports run only via POST /api/report or 'specto run'")
	}

	srv := server.New(config, logger, cache, sched)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Dashboard ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
		return 1
	}

	logger.Info().Msg("Server stopped")
	return 0
}
