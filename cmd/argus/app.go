package main

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/browser"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/crawler"
	"github.com/ternarybob/argus/internal/fetchers"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/intel/briefing"
	"github.com/ternarybob/argus/internal/intel/techfrontier"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/oracle"
	"github.com/ternarybob/argus/internal/pipeline"
	"github.com/ternarybob/argus/internal/scheduler"
	"github.com/ternarybob/argus/internal/storage"
)

// app holds the wired components every subcommand draws from
type app struct {
	config  *common.Config
	logger  arbor.ILogger
	store   *storage.Storage
	browser *browser.Pool
	runner  *crawler.Runner
	sources []models.SourceDefinition

	annotator intel.Annotator
	enricher  techfrontier.Enricher
	narrator  briefing.Generator

	pipeline *pipeline.Pipeline
	briefing *briefing.Service
}

// newApp wires storage, the crawl machinery, the source catalog, the
// oracle seams when configured, and the pipeline on top of them.
func newApp(cfg *common.Config, logger arbor.ILogger) (*app, error) {
	store := storage.New(cfg.Storage.DataDir, logger)
	pool := browser.New(&cfg.Browser, logger)

	deps := &fetchers.Deps{
		HTTP:      httpclient.New(&cfg.Crawler),
		Browser:   pool,
		Snapshots: store.Snapshots,
		Config:    cfg,
		Logger:    logger,
	}
	runner := crawler.NewRunner(deps, store, logger)

	sources, err := scheduler.LoadCatalogs(cfg.Sources.Dir)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("sources", len(sources)).Str("dir", cfg.Sources.Dir).Msg("Source catalog loaded")

	a := &app{
		config:  cfg,
		logger:  logger,
		store:   store,
		browser: pool,
		runner:  runner,
		sources: sources,
	}

	// The interface fields stay nil unless a client exists; a typed nil
	// would defeat the pipeline's skip checks.
	if ready, reason := cfg.OracleReady(); ready {
		client, err := oracle.New(&cfg.Oracle, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Oracle client init failed, enrichment disabled")
		} else {
			a.annotator = client
			a.enricher = client
			a.narrator = client
			logger.Info().Str("model", cfg.Oracle.Model).Msg("Oracle client initialized")
		}
	} else {
		logger.Info().Str("reason", reason).Msg("Oracle enrichment disabled")
	}

	a.pipeline = pipeline.New(cfg, store, sources, runner, a.annotator, a.enricher, a.narrator, logger)
	a.briefing = briefing.NewService(store, logger, a.narrator)

	return a, nil
}
