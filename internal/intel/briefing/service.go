package briefing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/storage"
)

// Module is the processed-output directory name
const Module = "daily_briefing"

// lookbackDays bounds the article window for one report
const lookbackDays = 1

// Response is the complete daily briefing document served to the frontend
// and cached per report date.
type Response struct {
	GeneratedAt     string         `json:"generated_at"`
	Date            string         `json:"date"`
	Paragraphs      []Paragraph    `json:"paragraphs"`
	MetricCards     []MetricCard   `json:"metric_cards"`
	Summary         string         `json:"summary"`
	ArticleCount    int            `json:"article_count"`
	DimensionCounts map[string]int `json:"dimension_counts"`
}

// Service generates and caches daily briefings. The generator is optional,
// a nil generator means every narrative is rule-built.
type Service struct {
	store     *storage.Storage
	logger    arbor.ILogger
	generator Generator
	dir       string
}

func NewService(store *storage.Storage, logger arbor.ILogger, generator Generator) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		generator: generator,
		dir:       store.ProcessedDir(Module),
	}
}

func (s *Service) cachePath(targetDate time.Time) string {
	return filepath.Join(s.dir, targetDate.Format("2006-01-02")+".json")
}

// Get returns the briefing for targetDate, serving the cached document
// unless force is set.
func (s *Service) Get(ctx context.Context, targetDate time.Time, force bool) (*Response, error) {
	if !force {
		var cached Response
		if err := storage.ReadJSON(s.cachePath(targetDate), &cached); err == nil && cached.Date != "" {
			s.logger.Info().Str("date", cached.Date).Msg("Returning cached briefing")
			return &cached, nil
		}
	}
	return s.Generate(ctx, targetDate)
}

// Generate runs the full pipeline: collect articles, compute metric cards,
// produce the narrative, and cache the assembled response.
func (s *Service) Generate(ctx context.Context, targetDate time.Time) (*Response, error) {
	byDim := CollectDailyArticles(s.store, targetDate, lookbackDays)

	total := 0
	dimensionCounts := map[string]int{}
	for dim, articles := range byDim {
		dimensionCounts[dim] = len(articles)
		total += len(articles)
	}

	s.logger.Info().
		Int("articles", total).
		Int("dimensions", len(byDim)).
		Str("date", targetDate.Format("2006-01-02")).
		Msg("Collected articles for briefing")

	metricCards := ComputeMetricCards(s.store, byDim)
	narrative := s.buildNarrative(ctx, byDim, targetDate, total)

	response := &Response{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Date:            targetDate.Format("2006-01-02"),
		Paragraphs:      narrative.Paragraphs,
		MetricCards:     metricCards,
		Summary:         narrative.Summary,
		ArticleCount:    total,
		DimensionCounts: dimensionCounts,
	}

	if err := storage.WriteJSONAtomic(s.cachePath(targetDate), response); err != nil {
		return nil, fmt.Errorf("caching briefing: %w", err)
	}
	s.logger.Info().Str("path", s.cachePath(targetDate)).Msg("Briefing cached")

	return response, nil
}

func (s *Service) buildNarrative(ctx context.Context, byDim map[string][]intel.Article, targetDate time.Time, total int) *Narrative {
	if total == 0 {
		return &Narrative{
			Paragraphs: []Paragraph{{Plain("院长，今日暂无新的信息更新。各维度数据将在下次爬取后自动更新。")}},
			Summary:    "今日暂无新的信息更新。",
		}
	}

	if s.generator == nil {
		s.logger.Info().Msg("Narrative model not configured, using rule fallback")
		return BuildFallback(byDim)
	}

	articleList, index := PrepareNarrativeInput(byDim)
	metricSummary := BuildMetricSummary(byDim, targetDate)

	narrative, err := s.generator.GenerateNarrative(ctx, articleList, metricSummary)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Narrative generation failed, using rule fallback")
		return BuildFallback(byDim)
	}
	s.logger.Info().Msg("Briefing narrative generated")
	return narrative.Normalize(index)
}

// MetricCardsOnly computes the dashboard cards without any narrative,
// bypassing the cache.
func (s *Service) MetricCardsOnly(targetDate time.Time) *Response {
	byDim := CollectDailyArticles(s.store, targetDate, lookbackDays)

	total := 0
	dimensionCounts := map[string]int{}
	for dim, articles := range byDim {
		dimensionCounts[dim] = len(articles)
		total += len(articles)
	}

	return &Response{
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
		Date:            targetDate.Format("2006-01-02"),
		MetricCards:     ComputeMetricCards(s.store, byDim),
		ArticleCount:    total,
		DimensionCounts: dimensionCounts,
	}
}
