// Package crawler runs the per-source crawl protocol: build the fetcher,
// time the run, classify the outcome, and persist artifact, run log, and
// source health in one place.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/fetchers"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Runner executes single-source crawls
type Runner struct {
	deps    *fetchers.Deps
	storage *storage.Storage
	logger  arbor.ILogger
}

// NewRunner wires the crawl protocol to its stores
func NewRunner(deps *fetchers.Deps, store *storage.Storage, logger arbor.ILogger) *Runner {
	return &Runner{deps: deps, storage: store, logger: logger}
}

// Run crawls one source end to end. It never returns an error: every
// outcome, including a fetcher build failure, is folded into the
// CrawlResult status and persisted.
func (r *Runner) Run(ctx context.Context, src *models.SourceDefinition) models.CrawlResult {
	startedAt := time.Now().UTC()

	r.logger.Info().
		Str("source_id", src.ID).
		Str("dimension", src.Dimension).
		Msg("Crawl started")

	result := r.execute(ctx, src)
	result.SourceID = src.ID
	result.StartedAt = startedAt
	result.EndedAt = time.Now().UTC()
	result.DurationSeconds = result.EndedAt.Sub(startedAt).Seconds()

	r.persist(src, &result)

	event := r.logger.Info()
	if result.Status == models.CrawlStatusFailed {
		event = r.logger.Warn()
	}
	event.
		Str("source_id", src.ID).
		Str("status", result.Status).
		Int("items_total", result.ItemsTotal).
		Int("items_new", result.ItemsNew).
		Float64("duration_seconds", result.DurationSeconds).
		Msg("Crawl finished")

	return result
}

func (r *Runner) execute(ctx context.Context, src *models.SourceDefinition) models.CrawlResult {
	fetcher, err := fetchers.Build(src, r.deps)
	if err != nil {
		return models.CrawlResult{
			Status:       models.CrawlStatusFailed,
			ErrorMessage: err.Error(),
		}
	}

	fetched, err := fetcher.Fetch(ctx)
	if err != nil {
		return models.CrawlResult{
			Status:       models.CrawlStatusFailed,
			ErrorMessage: err.Error(),
		}
	}

	artifact, err := r.storage.Artifacts.Write(src, fetched.Items, time.Now().UTC())
	if err != nil {
		return models.CrawlResult{
			Status:       models.CrawlStatusFailed,
			ItemsTotal:   len(fetched.Items),
			ErrorMessage: fmt.Sprintf("artifact write failed: %v", err),
		}
	}

	result := models.CrawlResult{
		Status:     models.ClassifyCrawlStatus(len(artifact.Items), fetched.ItemErrors, false),
		ItemsTotal: artifact.ItemCount,
		ItemsNew:   artifact.NewItemCount,
		Items:      artifact.Items,
	}
	if fetched.ItemErrors > 0 {
		result.ErrorMessage = fmt.Sprintf("%d item-level failures", fetched.ItemErrors)
	}
	return result
}

// persist records the run log and health counters; store failures are logged
// but never override the crawl status.
func (r *Runner) persist(src *models.SourceDefinition, result *models.CrawlResult) {
	if err := r.storage.RunLogs.Append(src.ID, models.RunLog{
		Timestamp:       result.EndedAt,
		Status:          result.Status,
		ItemsTotal:      result.ItemsTotal,
		ItemsNew:        result.ItemsNew,
		DurationSeconds: result.DurationSeconds,
		ErrorMessage:    result.ErrorMessage,
	}); err != nil {
		r.logger.Warn().Str("source_id", src.ID).Err(err).Msg("Run log append failed")
	}

	if err := r.storage.State.RecordRun(src.ID, result.Status, result.EndedAt); err != nil {
		r.logger.Warn().Str("source_id", src.ID).Err(err).Msg("Source state update failed")
	}
}
