// Package scheduler owns the crawl calendar: per-source cron registration
// with startup jitter, the global concurrency cap, manual triggers, and the
// nightly pipeline slot.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/semaphore"

	"github.com/ternarybob/argus/internal/browser"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/crawler"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// ErrUnknownSource rejects triggers for source IDs not in the catalog
var ErrUnknownSource = errors.New("unknown source")

// ErrAlreadyRunning rejects a trigger while the same source is in flight
var ErrAlreadyRunning = errors.New("crawl already in flight")

// PipelineRunner is the nightly processing entrypoint the scheduler invokes
type PipelineRunner interface {
	Run(ctx context.Context) *models.PipelineResult
}

// Scheduler drives all periodic work
type Scheduler struct {
	config   *common.Config
	logger   arbor.ILogger
	runner   *crawler.Runner
	store    *storage.Storage
	browser  *browser.Pool
	pipeline PipelineRunner

	cron    *cron.Cron
	sem     *semaphore.Weighted
	sources map[string]*models.SourceDefinition
	order   []string

	mu       sync.Mutex
	inFlight map[string]bool
	wg       sync.WaitGroup

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New builds the scheduler over a loaded catalog
func New(cfg *common.Config, sources []models.SourceDefinition, runner *crawler.Runner,
	store *storage.Storage, pool *browser.Pool, pipeline PipelineRunner, logger arbor.ILogger) *Scheduler {

	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		config:   cfg,
		logger:   logger,
		runner:   runner,
		store:    store,
		browser:  pool,
		pipeline: pipeline,
		// Cron specs are fixed clock times and must not drift with the host zone
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sem:      semaphore.NewWeighted(int64(cfg.Scheduler.MaxConcurrentCrawls)),
		sources:  make(map[string]*models.SourceDefinition, len(sources)),
		inFlight: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := range sources {
		src := &sources[i]
		s.sources[src.ID] = src
		s.order = append(s.order, src.ID)
	}
	return s
}

// cronSpec maps the symbolic schedule frequencies onto cron expressions.
// Interval schedules use @every; calendar schedules land off-peak.
func cronSpec(schedule string) string {
	switch schedule {
	case models.Schedule2H:
		return "@every 2h"
	case models.Schedule4H:
		return "@every 4h"
	case models.ScheduleWeekly:
		return "0 3 * * 1"
	case models.ScheduleMonthly:
		return "0 2 1 * *"
	default:
		return "0 6 * * *"
	}
}

// Start registers every source and the pipeline slot, then starts the cron
// loop. When the raw store is empty it also primes all sources once.
func (s *Scheduler) Start() error {
	if s.started {
		return fmt.Errorf("scheduler already running")
	}

	for _, id := range s.order {
		src := s.sources[id]
		spec := cronSpec(src.Schedule)
		if _, err := s.cron.AddFunc(spec, func() { s.scheduledRun(src.ID) }); err != nil {
			return fmt.Errorf("cron registration failed for %s: %w", src.ID, err)
		}
		s.logger.Debug().
			Str("source_id", src.ID).
			Str("schedule", src.Schedule).
			Str("cron", spec).
			Msg("Source registered")
	}

	pipelineSpec := fmt.Sprintf("%d %d * * *", s.config.Pipeline.CronMinute, s.config.Pipeline.CronHour)
	if s.pipeline != nil {
		if _, err := s.cron.AddFunc(pipelineSpec, func() { s.runPipeline() }); err != nil {
			return fmt.Errorf("pipeline cron registration failed: %w", err)
		}
	}

	s.cron.Start()
	s.started = true
	s.logger.Info().
		Int("sources", len(s.sources)).
		Int("max_concurrent", s.config.Scheduler.MaxConcurrentCrawls).
		Str("pipeline_cron", pipelineSpec).
		Msg("Scheduler started")

	if s.store.Artifacts.Empty() {
		s.logger.Info().Msg("Raw store empty, priming all sources")
		s.primeAll()
	}
	return nil
}

// scheduledRun is the cron entry for one source: jitter first so sources
// sharing a schedule do not stampede their hosts, then the normal run path.
func (s *Scheduler) scheduledRun(sourceID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !s.sleepJitter() {
			return
		}
		if err := s.runSource(sourceID); err != nil &&
			!errors.Is(err, ErrAlreadyRunning) && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Str("source_id", sourceID).Err(err).Msg("Scheduled crawl skipped")
		}
	}()
}

// sleepJitter waits a uniform [0, jitter_max) before a scheduled crawl;
// false means the scheduler is shutting down.
func (s *Scheduler) sleepJitter() bool {
	max := s.config.Scheduler.JitterMax
	if max <= 0 {
		return s.ctx.Err() == nil
	}
	delay := time.Duration(rand.Int63n(int64(max)))
	select {
	case <-time.After(delay):
		return true
	case <-s.ctx.Done():
		return false
	}
}

// runSource enforces the single-flight and global-concurrency invariants
// around one crawl.
func (s *Scheduler) runSource(sourceID string) error {
	src, ok := s.sources[sourceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}
	if !s.Enabled(sourceID) {
		return nil
	}

	s.mu.Lock()
	if s.inFlight[sourceID] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, sourceID)
	}
	s.inFlight[sourceID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sourceID)
		s.mu.Unlock()
	}()

	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	s.runner.Run(s.ctx, src)
	return nil
}

// Enabled resolves the effective flag: a runtime override wins over the
// catalog value.
func (s *Scheduler) Enabled(sourceID string) bool {
	src, ok := s.sources[sourceID]
	if !ok {
		return false
	}
	state := s.store.State.Get(sourceID)
	if state.EnabledOverride != nil {
		return *state.EnabledOverride
	}
	return src.Enabled
}

// Trigger starts one source immediately, bypassing jitter but not the
// concurrency cap or the single-flight check.
func (s *Scheduler) Trigger(sourceID string) error {
	if _, ok := s.sources[sourceID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
	}

	s.mu.Lock()
	if s.inFlight[sourceID] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, sourceID)
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.runSource(sourceID); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn().Str("source_id", sourceID).Err(err).Msg("Triggered crawl failed to start")
		}
	}()
	return nil
}

// TriggerPipeline starts the processing pipeline immediately
func (s *Scheduler) TriggerPipeline() error {
	if s.pipeline == nil {
		return fmt.Errorf("pipeline not configured")
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runPipeline()
	}()
	return nil
}

func (s *Scheduler) runPipeline() {
	result := s.pipeline.Run(s.ctx)
	if result == nil {
		return
	}
	s.logger.Info().
		Str("run_id", result.RunID).
		Str("status", result.Status).
		Float64("duration_seconds", result.DurationSeconds).
		Msg("Pipeline run finished")
}

// primeAll crawls every enabled source once, spread by short stagger
func (s *Scheduler) primeAll() {
	for i, id := range s.order {
		stagger := time.Duration(i) * time.Second
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-time.After(stagger):
			case <-s.ctx.Done():
				return
			}
			if err := s.runSource(id); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn().Str("source_id", id).Err(err).Msg("Priming crawl skipped")
			}
		}()
	}
}

// Sources returns catalog definitions in file order
func (s *Scheduler) Sources() []*models.SourceDefinition {
	out := make([]*models.SourceDefinition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sources[id])
	}
	return out
}

// Source looks up one catalog definition
func (s *Scheduler) Source(sourceID string) (*models.SourceDefinition, bool) {
	src, ok := s.sources[sourceID]
	return src, ok
}

// Stop cancels all work and waits up to the shutdown grace for in-flight
// crawls, then closes the browser pool.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	s.started = false

	cronCtx := s.cron.Stop()
	s.cancel()

	grace := s.config.Scheduler.ShutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped cleanly")
	case <-time.After(grace):
		s.logger.Warn().Dur("grace", grace).Msg("Scheduler stop timed out, abandoning in-flight work")
	}

	if s.browser != nil {
		s.browser.Shutdown()
	}
}
