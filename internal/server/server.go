// Package server is the read API over the file-backed data directory.
// Every GET endpoint reads JSON the pipeline wrote; the only mutations are
// the source enable toggle and the manual crawl and pipeline triggers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/intel/briefing"
	"github.com/ternarybob/argus/internal/scheduler"
	"github.com/ternarybob/argus/internal/storage"
)

// Server manages the HTTP server and routes
type Server struct {
	config    *common.Config
	logger    arbor.ILogger
	store     *storage.Storage
	scheduler *scheduler.Scheduler
	briefing  *briefing.Service
	server    *http.Server
}

// New creates the read API server
func New(cfg *common.Config, store *storage.Storage, sched *scheduler.Scheduler,
	briefingSvc *briefing.Service, logger arbor.ILogger) *Server {

	s := &Server{
		config:    cfg,
		logger:    logger,
		store:     store,
		scheduler: sched,
		briefing:  briefingSvc,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.routes()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// routes builds the API mux
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/health/crawl-status", s.handleCrawlStatus)

	mux.HandleFunc("GET /api/v1/articles", s.handleArticles)
	mux.HandleFunc("GET /api/v1/articles/{id}", s.handleArticleDetail)
	mux.HandleFunc("GET /api/v1/dimensions", s.handleDimensions)

	mux.HandleFunc("GET /api/v1/sources", s.handleSources)
	mux.HandleFunc("GET /api/v1/sources/{id}", s.handleSourceDetail)
	mux.HandleFunc("GET /api/v1/sources/{id}/logs", s.handleSourceLogs)
	mux.HandleFunc("PATCH /api/v1/sources/{id}", s.handleSourceUpdate)
	mux.HandleFunc("POST /api/v1/sources/{id}/trigger", s.handleSourceTrigger)

	mux.HandleFunc("GET /api/v1/pipeline/status", s.handlePipelineStatus)
	mux.HandleFunc("POST /api/v1/pipeline/trigger", s.handlePipelineTrigger)

	mux.HandleFunc("GET /api/v1/intel/policy/feed", s.handlePolicyFeed)
	mux.HandleFunc("GET /api/v1/intel/policy/opportunities", s.handlePolicyOpportunities)
	mux.HandleFunc("GET /api/v1/intel/policy/stats", s.handlePolicyStats)

	mux.HandleFunc("GET /api/v1/intel/personnel/feed", s.handlePersonnelFeed)
	mux.HandleFunc("GET /api/v1/intel/personnel/changes", s.handlePersonnelChanges)
	mux.HandleFunc("GET /api/v1/intel/personnel/enriched", s.handlePersonnelEnriched)

	mux.HandleFunc("GET /api/v1/intel/tech-frontier/topics", s.handleFrontierTopics)
	mux.HandleFunc("GET /api/v1/intel/tech-frontier/opportunities", s.handleFrontierOpportunities)
	mux.HandleFunc("GET /api/v1/intel/tech-frontier/stats", s.handleFrontierStats)

	mux.HandleFunc("GET /api/v1/intel/university/overview", s.handleUniversityOverview)
	mux.HandleFunc("GET /api/v1/intel/university/feed", s.handleUniversityFeed)
	mux.HandleFunc("GET /api/v1/intel/university/research-outputs", s.handleUniversityResearch)

	mux.HandleFunc("GET /api/v1/intel/daily-briefing", s.handleDailyBriefing)
	mux.HandleFunc("GET /api/v1/intel/daily-briefing/metric-cards", s.handleMetricCards)

	return mux
}

// Start blocks serving until shutdown
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
