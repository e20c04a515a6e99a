// Package pipeline runs the daily processing chain: crawl every enabled
// source, rebuild the four intel feeds, enrich via the oracle when it is
// configured, regenerate the data index, and produce the daily briefing.
// Stages run sequentially and are error isolated; a failed crawl still
// lets processing run on existing raw data.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/crawler"
	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/intel/briefing"
	"github.com/ternarybob/argus/internal/intel/personnel"
	"github.com/ternarybob/argus/internal/intel/policy"
	"github.com/ternarybob/argus/internal/intel/techfrontier"
	"github.com/ternarybob/argus/internal/intel/universityeco"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Pipeline owns the processors and drives one full run at a time
type Pipeline struct {
	config  *common.Config
	store   *storage.Storage
	logger  arbor.ILogger
	runner  *crawler.Runner
	sources []models.SourceDefinition

	policy     *policy.Processor
	personnel  *personnel.Processor
	university *universityeco.Processor
	frontier   *techfrontier.Processor
	briefing   *briefing.Service

	annotator intel.Annotator
	enricher  techfrontier.Enricher
}

// New wires the pipeline. The oracle seams (annotator, enricher, narrator)
// may be nil; the matching stages are then skipped.
func New(cfg *common.Config, store *storage.Storage, sources []models.SourceDefinition,
	runner *crawler.Runner, annotator intel.Annotator, enricher techfrontier.Enricher,
	narrator briefing.Generator, logger arbor.ILogger) *Pipeline {

	return &Pipeline{
		config:     cfg,
		store:      store,
		logger:     logger,
		runner:     runner,
		sources:    sources,
		policy:     policy.New(store, logger),
		personnel:  personnel.New(store, logger),
		university: universityeco.New(store, logger),
		frontier:   techfrontier.New(store, logger),
		briefing:   briefing.NewService(store, logger, narrator),
		annotator:  annotator,
		enricher:   enricher,
	}
}

func (p *Pipeline) runStage(name string, fn func() (map[string]any, error)) models.StageResult {
	start := time.Now()
	p.logger.Info().Str("stage", name).Msg("Pipeline stage starting")

	summary, err := fn()
	stage := models.StageResult{
		Name:            name,
		DurationSeconds: time.Since(start).Seconds(),
		Summary:         summary,
	}
	if err != nil {
		stage.Status = models.StageStatusFailed
		stage.Error = err.Error()
		p.logger.Error().Str("stage", name).Err(err).Msg("Pipeline stage failed")
	} else {
		stage.Status = models.StageStatusSuccess
		p.logger.Info().Str("stage", name).Dur("duration", time.Since(start)).Msg("Pipeline stage completed")
	}
	return stage
}

func skippedStage(name, reason string) models.StageResult {
	return models.StageResult{
		Name:    name,
		Status:  models.StageStatusSkipped,
		Summary: map[string]any{"skipped": true, "reason": reason},
	}
}

// Run executes the full daily pipeline and persists the result to
// pipeline_status.json.
func (p *Pipeline) Run(ctx context.Context) *models.PipelineResult {
	result := &models.PipelineResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	p.logger.Info().Str("run_id", result.RunID).Msg("Daily pipeline starting")

	crawlStage := p.runStage("crawl_all", func() (map[string]any, error) { return p.crawlAll(ctx) })
	result.Stages = append(result.Stages, crawlStage)
	if crawlStage.Status == models.StageStatusFailed {
		p.logger.Warn().Msg("Crawl stage failed, processing will run on existing data")
	}

	processStages := []models.StageResult{
		p.runStage("process_policy", func() (map[string]any, error) { return p.policy.Process(intel.Options{}) }),
		p.runStage("process_personnel", func() (map[string]any, error) { return p.personnel.Process(intel.Options{}) }),
		p.runStage("process_university_eco", func() (map[string]any, error) { return p.university.Process(intel.Options{}) }),
		p.runStage("process_tech_frontier", func() (map[string]any, error) { return p.frontier.Process(intel.Options{}) }),
	}
	result.Stages = append(result.Stages, processStages...)

	if ready, reason := p.oracleReady(); ready {
		threshold := p.config.Oracle.Threshold
		concurrency := p.config.Oracle.Concurrency
		result.Stages = append(result.Stages,
			p.runStage("enrich_policy_llm", func() (map[string]any, error) {
				return p.policy.EnrichLLM(ctx, p.annotator, threshold, concurrency)
			}),
			p.runStage("enrich_personnel_llm", func() (map[string]any, error) {
				return p.personnel.EnrichLLM(ctx, p.annotator, concurrency)
			}),
			p.runStage("enrich_tech_frontier_llm", func() (map[string]any, error) {
				return p.frontier.EnrichLLM(ctx, p.enricher)
			}),
		)
	} else {
		result.Stages = append(result.Stages,
			skippedStage("enrich_policy_llm", reason),
			skippedStage("enrich_personnel_llm", reason),
			skippedStage("enrich_tech_frontier_llm", reason),
		)
	}

	result.Stages = append(result.Stages,
		p.runStage("generate_index", func() (map[string]any, error) { return p.GenerateIndex() }))

	if processorsSawArticles(processStages) {
		result.Stages = append(result.Stages,
			p.runStage("generate_briefing", func() (map[string]any, error) { return p.generateBriefing(ctx) }))
	} else {
		result.Stages = append(result.Stages,
			skippedStage("generate_briefing", "no processed output"))
	}

	result.FinishedAt = time.Now().UTC()
	result.DurationSeconds = result.FinishedAt.Sub(result.StartedAt).Seconds()
	result.GeneratedAt = result.FinishedAt
	result.Status = result.OverallStatus()

	if err := storage.WriteJSONAtomic(p.store.PipelineStatusPath(), result); err != nil {
		p.logger.Error().Err(err).Msg("Failed to persist pipeline status")
	}

	p.logger.Info().
		Str("run_id", result.RunID).
		Str("status", result.Status).
		Float64("duration_seconds", result.DurationSeconds).
		Msg("Daily pipeline complete")
	for _, stage := range result.Stages {
		event := p.logger.Info().Str("stage", stage.Name).Str("status", stage.Status)
		if stage.Error != "" {
			event = event.Str("error", stage.Error)
		}
		event.Msg("Pipeline stage result")
	}

	return result
}

// processorsSawArticles reports whether any process stage had input at all;
// the briefing stage is pointless without one.
func processorsSawArticles(stages []models.StageResult) bool {
	for _, stage := range stages {
		if n, ok := stage.Summary["unique"].(int); ok && n > 0 {
			return true
		}
	}
	return false
}

func (p *Pipeline) oracleReady() (bool, string) {
	ready, reason := p.config.OracleReady()
	if !ready {
		return false, reason
	}
	if p.annotator == nil || p.enricher == nil {
		return false, "oracle client not initialized"
	}
	return true, ""
}

// crawlAll runs every enabled source through the crawl runner, bounded by
// the scheduler's global concurrency cap.
func (p *Pipeline) crawlAll(ctx context.Context) (map[string]any, error) {
	enabled := make([]*models.SourceDefinition, 0, len(p.sources))
	for i := range p.sources {
		src := &p.sources[i]
		if p.sourceEnabled(src) {
			enabled = append(enabled, src)
		}
	}
	if len(enabled) == 0 {
		return map[string]any{"sources_total": 0}, nil
	}

	limit := p.config.Scheduler.MaxConcurrentCrawls
	if limit <= 0 {
		limit = 1
	}

	results := make([]models.CrawlResult, len(enabled))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for i, src := range enabled {
		i, src := i, src
		group.Go(func() error {
			results[i] = p.runner.Run(gctx, src)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var succeeded, failed, itemsTotal, itemsNew int
	for _, r := range results {
		if r.Status == models.CrawlStatusFailed {
			failed++
		} else {
			succeeded++
		}
		itemsTotal += r.ItemsTotal
		itemsNew += r.ItemsNew
	}

	summary := map[string]any{
		"sources_total": len(enabled),
		"succeeded":     succeeded,
		"failed":        failed,
		"items_total":   itemsTotal,
		"items_new":     itemsNew,
	}
	if succeeded == 0 && failed > 0 {
		return summary, fmt.Errorf("all %d crawls failed", failed)
	}
	return summary, nil
}

// sourceEnabled applies the runtime state override on top of the catalog flag
func (p *Pipeline) sourceEnabled(src *models.SourceDefinition) bool {
	state := p.store.State.Get(src.ID)
	if state.EnabledOverride != nil {
		return *state.EnabledOverride
	}
	return src.Enabled
}

func (p *Pipeline) generateBriefing(ctx context.Context) (map[string]any, error) {
	resp, err := p.briefing.Generate(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"date":               resp.Date,
		"article_count":      resp.ArticleCount,
		"paragraphs_count":   len(resp.Paragraphs),
		"metric_cards_count": len(resp.MetricCards),
		"has_summary":        resp.Summary != "",
	}, nil
}
