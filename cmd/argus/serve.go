package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/scheduler"
	"github.com/ternarybob/argus/internal/server"
)

// runServe starts the scheduler and the read API and blocks until a
// shutdown signal arrives.
func runServe(args []string) {
	application, err := newApp(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	sched := scheduler.New(config, application.sources, application.runner,
		application.store, application.browser, application.pipeline, logger)

	if config.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
			os.Exit(1)
		}
	} else {
		logger.Warn().Msg("Scheduler disabled, crawls run only on manual trigger")
	}

	srv := server.New(config, application.store, sched, application.briefing, logger)

	common.SafeGo(logger, "http-server", func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	if config.Scheduler.Enabled {
		// Stop also shuts the browser pool down
		sched.Stop()
	} else {
		application.browser.Shutdown()
	}
	logger.Info().Msg("Server stopped")
}
