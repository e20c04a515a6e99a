package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/argus/internal/models"
)

// runCrawl crawls one source or the whole catalog from the command line
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	sourceID := fs.String("source", "", "Crawl a single source by ID")
	all := fs.Bool("all", false, "Crawl every enabled source")
	dimension := fs.String("dimension", "", "With --all, restrict to one dimension")
	fs.Parse(args)

	if *sourceID == "" && !*all {
		fmt.Fprintln(os.Stderr, "crawl requires --source ID or --all")
		fs.Usage()
		os.Exit(2)
	}

	application, err := newApp(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.browser.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *sourceID != "" {
		var src *models.SourceDefinition
		for i := range application.sources {
			if application.sources[i].ID == *sourceID {
				src = &application.sources[i]
				break
			}
		}
		if src == nil {
			logger.Fatal().Str("source_id", *sourceID).Msg("Source not found in catalog")
			os.Exit(1)
		}
		printCrawlResult(application.runner.Run(ctx, src))
		return
	}

	crawled, failed := 0, 0
	for i := range application.sources {
		src := &application.sources[i]
		if *dimension != "" && src.Dimension != *dimension {
			continue
		}
		if !sourceEnabled(application, src) {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn().Msg("Crawl interrupted")
			break
		}
		result := application.runner.Run(ctx, src)
		printCrawlResult(result)
		crawled++
		if result.Status == models.CrawlStatusFailed {
			failed++
		}
	}
	fmt.Printf("\nCrawled %d sources, %d failed\n", crawled, failed)
	if failed > 0 && failed == crawled {
		os.Exit(1)
	}
}

// sourceEnabled applies the runtime override on top of the catalog flag
func sourceEnabled(a *app, src *models.SourceDefinition) bool {
	state := a.store.State.Get(src.ID)
	if state.EnabledOverride != nil {
		return *state.EnabledOverride
	}
	return src.Enabled
}

func printCrawlResult(result models.CrawlResult) {
	fmt.Printf("%-30s %-15s items=%-4d new=%-4d %.1fs",
		result.SourceID, result.Status, result.ItemsTotal, result.ItemsNew, result.DurationSeconds)
	if result.ErrorMessage != "" {
		fmt.Printf("  %s", result.ErrorMessage)
	}
	fmt.Println()
}
