package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/scheduler"
	"github.com/ternarybob/argus/internal/storage"
)

// failingThreshold marks a source unhealthy after this many consecutive
// failed crawls
const failingThreshold = 3

func intQuery(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	schedulerStatus := "not_started"
	if s.scheduler != nil {
		schedulerStatus = "running"
	}
	storageStatus := "ok"
	if s.store.Artifacts.Empty() {
		storageStatus = "empty"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"storage":   storageStatus,
		"scheduler": schedulerStatus,
	})
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	type sourceHealth struct {
		SourceID            string     `json:"source_id"`
		ConsecutiveFailures int        `json:"consecutive_failures"`
		LastCrawlAt         *time.Time `json:"last_crawl_at,omitempty"`
		LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	}

	states := s.store.State.All()
	failing := []sourceHealth{}
	for sourceID, state := range states {
		if state.ConsecutiveFailures >= failingThreshold {
			failing = append(failing, sourceHealth{
				SourceID:            sourceID,
				ConsecutiveFailures: state.ConsecutiveFailures,
				LastCrawlAt:         state.LastCrawlAt,
				LastSuccessAt:       state.LastSuccessAt,
			})
		}
	}

	status := "healthy"
	if len(failing) > 0 {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          status,
		"tracked_sources": len(states),
		"failing_count":   len(failing),
		"failing_sources": failing,
	})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ArticleFilter{
		Dimension: q.Get("dimension"),
		SourceID:  q.Get("source_id"),
		Keyword:   q.Get("keyword"),
		DateFrom:  q.Get("date_from"),
		DateTo:    q.Get("date_to"),
		Limit:     intQuery(r, "limit", 50),
		Offset:    intQuery(r, "offset", 0),
	}
	items, total := s.store.Articles(filter)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
		"items":  items,
	})
}

func (s *Server) handleArticleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, artifact := range s.store.Artifacts.ListAll() {
		for i := range artifact.Items {
			if artifact.Items[i].URLHash == id {
				s.writeJSON(w, http.StatusOK, artifact.Items[i])
				return
			}
		}
	}
	s.writeError(w, http.StatusNotFound, "Article not found")
}

func (s *Server) handleDimensions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.DimensionOverview())
}

// sourceResponse merges the catalog definition with the runtime state
type sourceResponse struct {
	*models.SourceDefinition
	IsEnabled           bool       `json:"is_enabled"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastCrawlAt         *time.Time `json:"last_crawl_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
}

func (s *Server) sourceResponse(src *models.SourceDefinition) sourceResponse {
	state := s.store.State.Get(src.ID)
	enabled := src.Enabled
	if state.EnabledOverride != nil {
		enabled = *state.EnabledOverride
	}
	return sourceResponse{
		SourceDefinition:    src,
		IsEnabled:           enabled,
		ConsecutiveFailures: state.ConsecutiveFailures,
		LastCrawlAt:         state.LastCrawlAt,
		LastSuccessAt:       state.LastSuccessAt,
	}
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	out := []sourceResponse{}
	for _, src := range s.scheduler.Sources() {
		if dimension != "" && src.Dimension != dimension {
			continue
		}
		out = append(out, s.sourceResponse(src))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSourceDetail(w http.ResponseWriter, r *http.Request) {
	src, ok := s.scheduler.Source(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Source not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.sourceResponse(src))
}

func (s *Server) handleSourceLogs(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if _, ok := s.scheduler.Source(sourceID); !ok {
		s.writeError(w, http.StatusNotFound, "Source not found")
		return
	}
	logs := s.store.RunLogs.List(sourceID)
	limit := intQuery(r, "limit", 20)
	// Newest entries live at the tail of the log file
	if len(logs) > limit {
		logs = logs[len(logs)-limit:]
	}
	out := make([]models.RunLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, logs[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSourceUpdate(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	src, ok := s.scheduler.Source(sourceID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Source not found")
		return
	}

	var body struct {
		IsEnabled *bool `json:"is_enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.IsEnabled != nil {
		if err := s.store.State.SetEnabledOverride(sourceID, body.IsEnabled); err != nil {
			s.writeError(w, http.StatusInternalServerError, "Failed to update source")
			return
		}
	}
	s.writeJSON(w, http.StatusOK, s.sourceResponse(src))
}

func (s *Server) handleSourceTrigger(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("id")
	if _, ok := s.scheduler.Source(sourceID); !ok {
		s.writeError(w, http.StatusNotFound, "Source not found")
		return
	}
	if err := s.scheduler.Trigger(sourceID); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			s.writeError(w, http.StatusConflict, "Crawl already in flight")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "triggered", "source_id": sourceID})
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	var result models.PipelineResult
	if err := storage.ReadJSON(s.store.PipelineStatusPath(), &result); err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"status": "never_run"})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePipelineTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.scheduler.TriggerPipeline(); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

func (s *Server) handleDailyBriefing(w http.ResponseWriter, r *http.Request) {
	targetDate := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		targetDate = parsed
	}
	force := r.URL.Query().Get("force") == "true"

	resp, err := s.briefing.Get(r.Context(), targetDate, force)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetricCards(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.briefing.MetricCardsOnly(time.Now().UTC()))
}
