package techfrontier

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Module is the processed-output directory name
const Module = "tech_frontier"

// Per-topic output caps
const (
	maxNewsPerTopic = 30
	maxKOLPerTopic  = 10
)

var twitterTechSources = map[string]bool{
	"twitter_ai_kol_international": true,
	"twitter_ai_kol_chinese":       true,
	"twitter_ai_breakthrough":      true,
	"twitter_ai_papers":            true,
}

// Topic is one entry of topics.json, aligned with the frontend TechTopic type
type Topic struct {
	ID                   string      `json:"id"`
	Topic                string      `json:"topic"`
	Description          string      `json:"description"`
	Tags                 []string    `json:"tags"`
	HeatTrend            string      `json:"heatTrend"`
	HeatLabel            string      `json:"heatLabel"`
	OurStatus            string      `json:"ourStatus"`
	OurStatusLabel       string      `json:"ourStatusLabel"`
	GapLevel             string      `json:"gapLevel"`
	TrendingKeywords     []string    `json:"trendingKeywords"`
	RelatedNews          []TopicNews `json:"relatedNews"`
	KOLVoices            []KOLVoice  `json:"kolVoices"`
	AISummary            string      `json:"aiSummary"`
	AIInsight            string      `json:"aiInsight"`
	AIRiskAssessment     string      `json:"aiRiskAssessment,omitempty"`
	MemoSuggestion       string      `json:"memoSuggestion,omitempty"`
	TotalSignals         int         `json:"totalSignals"`
	SignalsSinceLastWeek int         `json:"signalsSinceLastWeek"`
	LastUpdated          string      `json:"lastUpdated"`
}

// Stats is the stats.json KPI document
type Stats struct {
	GeneratedAt            string         `json:"generated_at"`
	TotalTopics            int            `json:"totalTopics"`
	SurgingCount           int            `json:"surgingCount"`
	HighGapCount           int            `json:"highGapCount"`
	WeeklyNewSignals       int            `json:"weeklyNewSignals"`
	UrgentOpportunities    int            `json:"urgentOpportunities"`
	TotalOpportunities     int            `json:"totalOpportunities"`
	TotalArticlesProcessed int            `json:"totalArticlesProcessed"`
	DimensionBreakdown     map[string]int `json:"dimensionBreakdown"`
	TopicBreakdown         map[string]int `json:"topicBreakdown"`
}

// TopicEnrichment is the oracle layer for one topic
type TopicEnrichment struct {
	AISummary        string `json:"aiSummary"`
	AIInsight        string `json:"aiInsight"`
	AIRiskAssessment string `json:"aiRiskAssessment,omitempty"`
	MemoSuggestion   string `json:"memoSuggestion,omitempty"`
}

// OpportunityEnrichment is the oracle layer for one opportunity
type OpportunityEnrichment struct {
	AIAssessment     string `json:"aiAssessment"`
	ActionSuggestion string `json:"actionSuggestion"`
}

// Enricher produces oracle annotations for topics and opportunities
type Enricher interface {
	EnrichTopic(ctx context.Context, topic *Topic) (*TopicEnrichment, error)
	EnrichOpportunity(ctx context.Context, opp *Opportunity) (*OpportunityEnrichment, error)
}

// Processor runs the tech frontier analysis over the raw store
type Processor struct {
	store  *storage.Storage
	logger arbor.ILogger
	dir    string
}

func New(store *storage.Storage, logger arbor.ILogger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
		dir:    store.ProcessedDir(Module),
	}
}

// Process classifies all current articles into topics and writes
// topics.json, opportunities.json and stats.json. Outputs are rebuilt from
// scratch each run; the hash tracker only feeds the incremental summary.
// A dry run computes the summary and writes nothing.
func (p *Processor) Process(opts intel.Options) (map[string]any, error) {
	articles := p.collect()

	tracker := intel.LoadTracker(filepath.Join(p.dir, "_processed_hashes.json"))
	previously := tracker.Len()
	newCount := 0
	for i := range articles {
		a := &articles[i]
		if tracker.ShouldProcess(a.URLHash, a.ContentHash, opts.Force) {
			tracker.Mark(a.URLHash, a.ContentHash)
			newCount++
		}
	}
	if newCount > 0 && !opts.DryRun {
		if err := tracker.Save(); err != nil {
			return nil, err
		}
	}

	topics, opportunities, stats := p.buildOutputs(articles)

	if !opts.DryRun {
		if err := intel.SaveOutput(filepath.Join(p.dir, "topics.json"), topics, len(topics), nil); err != nil {
			return nil, err
		}
		if err := intel.SaveOutput(filepath.Join(p.dir, "opportunities.json"), opportunities, len(opportunities), nil); err != nil {
			return nil, err
		}
		if err := storage.WriteJSONAtomic(filepath.Join(p.dir, "stats.json"), stats); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Int("unique", len(articles)).
		Int("topics", len(topics)).
		Int("opportunities", len(opportunities)).
		Int("weekly_signals", stats.WeeklyNewSignals).
		Bool("dry_run", opts.DryRun).
		Msg("Tech frontier processing finished")

	return map[string]any{
		"unique":               len(articles),
		"new_processed":        newCount,
		"previously_processed": previously,
		"topics":               len(topics),
		"opportunities":        len(opportunities),
		"weekly_signals":       stats.WeeklyNewSignals,
	}, nil
}

// EnrichLLM fills the oracle fields of topics with enough signals and of all
// opportunities, then rewrites both files. Per-item failures are logged and
// skipped.
func (p *Processor) EnrichLLM(ctx context.Context, enricher Enricher) (map[string]any, error) {
	var topicsDoc struct {
		Items []Topic `json:"items"`
	}
	var oppsDoc struct {
		Items []Opportunity `json:"items"`
	}
	if err := storage.ReadJSON(filepath.Join(p.dir, "topics.json"), &topicsDoc); err != nil || len(topicsDoc.Items) == 0 {
		return map[string]any{"skipped": true, "reason": "no topics to enrich"}, nil
	}
	_ = storage.ReadJSON(filepath.Join(p.dir, "opportunities.json"), &oppsDoc)

	nowISO := time.Now().UTC().Format(time.RFC3339)
	topicsEnriched := 0
	for i := range topicsDoc.Items {
		topic := &topicsDoc.Items[i]
		if topic.TotalSignals < 5 || topic.AISummary != "" {
			continue
		}
		enrichment, err := enricher.EnrichTopic(ctx, topic)
		if err != nil {
			p.logger.Warn().Str("topic", topic.ID).Err(err).Msg("Topic enrichment failed")
			continue
		}
		topic.AISummary = enrichment.AISummary
		topic.AIInsight = enrichment.AIInsight
		topic.AIRiskAssessment = enrichment.AIRiskAssessment
		topic.MemoSuggestion = enrichment.MemoSuggestion
		topic.LastUpdated = nowISO
		topicsEnriched++
	}

	oppsEnriched := 0
	for i := range oppsDoc.Items {
		opp := &oppsDoc.Items[i]
		if opp.AIAssessment != "" {
			continue
		}
		enrichment, err := enricher.EnrichOpportunity(ctx, opp)
		if err != nil {
			p.logger.Warn().Str("opportunity", opp.ID).Err(err).Msg("Opportunity enrichment failed")
			continue
		}
		opp.AIAssessment = enrichment.AIAssessment
		opp.ActionSuggestion = enrichment.ActionSuggestion
		oppsEnriched++
	}

	if err := intel.SaveOutput(filepath.Join(p.dir, "topics.json"), topicsDoc.Items, len(topicsDoc.Items), nil); err != nil {
		return nil, err
	}
	if err := intel.SaveOutput(filepath.Join(p.dir, "opportunities.json"), oppsDoc.Items, len(oppsDoc.Items), nil); err != nil {
		return nil, err
	}

	return map[string]any{
		"topics_enriched":        topicsEnriched,
		"opportunities_enriched": oppsEnriched,
	}, nil
}

// collect gathers the module's article universe: all of technology and
// industry, the tech twitter sources, and the AI-institute university
// sources.
func (p *Processor) collect() []intel.Article {
	all := intel.CollectArticles(p.store,
		models.DimensionTechnology,
		models.DimensionTwitter,
		models.DimensionIndustry,
		models.DimensionUniversities,
	)
	kept := all[:0]
	for _, a := range all {
		switch a.Dimension {
		case models.DimensionTwitter:
			if !twitterTechSources[a.SourceID] {
				continue
			}
		case models.DimensionUniversities:
			if !IsAIInstituteSource(a.SourceID) {
				continue
			}
		}
		kept = append(kept, a)
	}
	return kept
}

func (p *Processor) buildOutputs(articles []intel.Article) ([]Topic, []Opportunity, *Stats) {
	nowISO := time.Now().UTC().Format(time.RFC3339)

	type scored struct {
		article *intel.Article
		score   int
	}
	topicArticles := map[string][]scored{}
	dimensionCounts := map[string]int{}
	var opportunities []Opportunity
	seenOpp := map[string]bool{}

	for i := range articles {
		a := &articles[i]
		dimensionCounts[a.Dimension]++

		for _, m := range ClassifyArticle(a) {
			topicArticles[m.TopicID] = append(topicArticles[m.TopicID], scored{a, m.MatchScore})
		}
		if opp := DetectOpportunity(a); opp != nil && !seenOpp[opp.ID] {
			seenOpp[opp.ID] = true
			opportunities = append(opportunities, *opp)
		}
	}

	topics := make([]Topic, 0, len(Topics))
	topicCounts := map[string]int{}
	weeklySignals := 0

	for _, config := range Topics {
		matched := topicArticles[config.ID]
		topicCounts[config.ID] = len(matched)

		matchedArticles := make([]*intel.Article, len(matched))
		for i, m := range matched {
			matchedArticles[i] = m.article
		}
		current, previous := SplitByPeriod(matchedArticles, 7)
		trend, label := ComputeHeat(len(current), len(previous))
		weeklySignals += len(current)

		sort.SliceStable(matched, func(i, j int) bool { return matched[i].score > matched[j].score })

		var news []TopicNews
		var voices []KOLVoice
		for _, m := range matched {
			if IsKOLSource(m.article.SourceID) {
				if len(voices) < maxKOLPerTopic {
					voices = append(voices, BuildKOLVoice(m.article))
				}
			} else if len(news) < maxNewsPerTopic {
				news = append(news, BuildTopicNews(m.article, m.score))
			}
		}
		sort.SliceStable(news, func(i, j int) bool { return news[i].Date > news[j].Date })

		topics = append(topics, Topic{
			ID:                   config.ID,
			Topic:                config.Topic,
			Description:          config.Description,
			Tags:                 config.Tags,
			HeatTrend:            trend,
			HeatLabel:            label,
			OurStatus:            config.OurStatus,
			OurStatusLabel:       config.OurStatusLabel,
			GapLevel:             config.GapLevel,
			TrendingKeywords:     []string{},
			RelatedNews:          news,
			KOLVoices:            voices,
			TotalSignals:         len(matched),
			SignalsSinceLastWeek: len(current),
			LastUpdated:          nowISO,
		})
	}

	trendOrder := map[string]int{"surging": 0, "rising": 1, "stable": 2, "declining": 3}
	sort.SliceStable(topics, func(i, j int) bool {
		oi, oj := rankOr(trendOrder, topics[i].HeatTrend), rankOr(trendOrder, topics[j].HeatTrend)
		if oi != oj {
			return oi < oj
		}
		return topics[i].TotalSignals > topics[j].TotalSignals
	})

	stats := &Stats{
		GeneratedAt:            nowISO,
		TotalTopics:            len(topics),
		WeeklyNewSignals:       weeklySignals,
		TotalOpportunities:     len(opportunities),
		TotalArticlesProcessed: len(articles),
		DimensionBreakdown:     dimensionCounts,
		TopicBreakdown:         topicCounts,
	}
	for _, t := range topics {
		if t.HeatTrend == "surging" {
			stats.SurgingCount++
		}
		if t.GapLevel == "high" {
			stats.HighGapCount++
		}
	}
	for _, o := range opportunities {
		if o.Priority == "紧急" {
			stats.UrgentOpportunities++
		}
	}

	return topics, opportunities, stats
}

func rankOr(order map[string]int, key string) int {
	if rank, ok := order[key]; ok {
		return rank
	}
	return 9
}
