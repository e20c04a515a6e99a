package main

import (
	"os"
)

// runIndex rebuilds data/index.json without running the rest of the pipeline
func runIndex(args []string) {
	application, err := newApp(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.browser.Shutdown()

	summary, err := application.pipeline.GenerateIndex()
	if err != nil {
		logger.Fatal().Err(err).Msg("Index generation failed")
		os.Exit(1)
	}
	printSummary("index", summary)
}
