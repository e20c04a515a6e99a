package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/intel/briefing"
	"github.com/ternarybob/argus/internal/intel/personnel"
	"github.com/ternarybob/argus/internal/intel/policy"
	"github.com/ternarybob/argus/internal/intel/techfrontier"
	"github.com/ternarybob/argus/internal/intel/universityeco"
)

// runProcess runs one analysis module (or all of them) over the raw store
func runProcess(args []string) {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	force := fs.Bool("force", false, "Reprocess even when no new content was crawled")
	dryRun := fs.Bool("dry-run", false, "Compute and print summaries without writing any output")
	noLLM := fs.Bool("no-llm", false, "Skip LLM enrichment even when the oracle is configured")
	fs.Parse(args)

	module := fs.Arg(0)
	switch module {
	case "policy", "personnel", "tech", "university", "briefing", "all":
	default:
		fmt.Fprintln(os.Stderr, "process requires a module: policy|personnel|tech|university|briefing|all")
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

	opts := intel.Options{DryRun: *dryRun, Force: *force}
	// LLM enrichment caches its results, so a dry run skips it entirely
	enrich := !*noLLM && !*dryRun
	failed := false

	run := func(name string, fn func() (map[string]any, error)) {
		summary, err := fn()
		if err != nil {
			logger.Error().Str("module", name).Err(err).Msg("Module failed")
			failed = true
			return
		}
		printSummary(name, summary)
	}

	if module == "policy" || module == "all" {
		proc := policy.New(application.store, logger)
		run("policy", func() (map[string]any, error) { return proc.Process(opts) })
		if enrich && application.annotator != nil {
			run("policy_llm", func() (map[string]any, error) {
				return proc.EnrichLLM(ctx, application.annotator, config.Oracle.Threshold, config.Oracle.Concurrency)
			})
		}
	}
	if module == "personnel" || module == "all" {
		proc := personnel.New(application.store, logger)
		run("personnel", func() (map[string]any, error) { return proc.Process(opts) })
		if enrich && application.annotator != nil {
			run("personnel_llm", func() (map[string]any, error) {
				return proc.EnrichLLM(ctx, application.annotator, config.Oracle.Concurrency)
			})
		}
	}
	if module == "tech" || module == "all" {
		proc := techfrontier.New(application.store, logger)
		run("tech", func() (map[string]any, error) { return proc.Process(opts) })
		if enrich && application.enricher != nil {
			run("tech_llm", func() (map[string]any, error) {
				return proc.EnrichLLM(ctx, application.enricher)
			})
		}
	}
	if module == "university" || module == "all" {
		proc := universityeco.New(application.store, logger)
		run("university", func() (map[string]any, error) { return proc.Process(opts) })
	}
	if module == "briefing" || module == "all" {
		var resp *briefing.Response
		var err error
		if *dryRun {
			// Metric cards come straight from the store; nothing is cached
			resp = application.briefing.MetricCardsOnly(time.Now().UTC())
		} else {
			resp, err = application.briefing.Get(ctx, time.Now().UTC(), *force)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Briefing failed")
			failed = true
		} else {
			printSummary("briefing", map[string]any{
				"date":          resp.Date,
				"article_count": resp.ArticleCount,
				"paragraphs":    len(resp.Paragraphs),
				"metric_cards":  len(resp.MetricCards),
			})
		}
	}

	if failed {
		os.Exit(1)
	}
}

func printSummary(name string, summary map[string]any) {
	data, err := json.Marshal(summary)
	if err != nil {
		fmt.Printf("%-15s done\n", name)
		return
	}
	fmt.Printf("%-15s %s\n", name, data)
}
