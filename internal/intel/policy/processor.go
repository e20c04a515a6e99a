package policy

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Module is the processed-output directory name
const Module = "policy_intel"

var dimensions = []string{models.DimensionNationalPolicy, models.DimensionBeijingPolicy}

// Processor runs the policy analysis over the raw store
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

type enrichedRecord struct {
	Article intel.StoredArticle `json:"article"`
	Fields  *Enrichment         `json:"llm"`
}

// FeedItem is one entry of feed.json
type FeedItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Date       string   `json:"date"`
	Source     string   `json:"source"`
	Tags       []string `json:"tags"`
	MatchScore int      `json:"matchScore"`
	Funding    string   `json:"funding,omitempty"`
	DaysLeft   *int     `json:"daysLeft,omitempty"`
	Leader     string   `json:"leader,omitempty"`
	Relevance  int      `json:"relevance"`
	Signals    []string `json:"signals,omitempty"`
	SourceURL  string   `json:"sourceUrl"`
	AIInsight  string   `json:"aiInsight,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	Content    string   `json:"content,omitempty"`
}

// OpportunityItem is one entry of opportunities.json
type OpportunityItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Agency     string `json:"agency"`
	AgencyType string `json:"agencyType"`
	MatchScore int    `json:"matchScore"`
	Funding    string `json:"funding"`
	Deadline   string `json:"deadline"`
	DaysLeft   int    `json:"daysLeft"`
	Status     string `json:"status"`
	AIInsight  string `json:"aiInsight"`
	Detail     string `json:"detail"`
	SourceURL  string `json:"sourceUrl"`
}

// Process runs tier-1 rules enrichment incrementally and rebuilds the feed
// and opportunity outputs from the full enriched cache. A dry run reports
// the same summary without touching the tracker, the cache, or the outputs.
func (p *Processor) Process(opts intel.Options) (map[string]any, error) {
	articles := p.collect()
	tracker := intel.LoadTracker(filepath.Join(p.dir, "_processed_hashes.json"))
	previously := tracker.Len()

	scored := 0
	var fresh []enrichedRecord
	for i := range articles {
		a := &articles[i]
		if !tracker.ShouldProcess(a.URLHash, a.ContentHash, opts.Force) {
			continue
		}
		rec := enrichedRecord{a.Stored(), EnrichByRules(a)}
		if opts.DryRun {
			fresh = append(fresh, rec)
		} else if err := p.saveEnriched(rec.Article, rec.Fields); err != nil {
			return nil, err
		}
		tracker.Mark(a.URLHash, a.ContentHash)
		scored++
	}
	if scored > 0 && !opts.DryRun {
		if err := tracker.Save(); err != nil {
			return nil, err
		}
	}

	records := overlayFresh(p.loadAllEnriched(), fresh)
	feedCount, oppCount, err := p.rebuildOutputs(records, opts.DryRun)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Int("unique", len(articles)).
		Int("new_processed", scored).
		Int("feed_items", feedCount).
		Int("opportunities", oppCount).
		Bool("dry_run", opts.DryRun).
		Msg("Policy processing finished")

	return map[string]any{
		"unique":               len(articles),
		"new_processed":        scored,
		"previously_processed": previously,
		"total_enriched":       len(records),
		"feed_items":           feedCount,
		"opportunities":        oppCount,
	}, nil
}

// EnrichLLM is tier 2: oracle annotation of high scorers not yet upgraded
func (p *Processor) EnrichLLM(ctx context.Context, annotator intel.Annotator, threshold, concurrency int) (map[string]any, error) {
	records := p.loadAllEnriched()
	if len(records) == 0 {
		return map[string]any{"skipped": true, "reason": "no enriched articles to process"}, nil
	}

	var candidates []enrichedRecord
	alreadyLLM, belowThreshold := 0, 0
	for _, rec := range records {
		switch {
		case rec.Fields.Tier == intel.TierLLM:
			alreadyLLM++
		case rec.Fields.MatchScore < threshold:
			belowThreshold++
		default:
			candidates = append(candidates, rec)
		}
	}

	var (
		mu       sync.Mutex
		enriched int
		failures int
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, rec := range candidates {
		rec := rec
		group.Go(func() error {
			annotation, err := annotator.Annotate(gctx, Module, rec.Article.AsArticle(), map[string]any{
				"matchScore": rec.Fields.MatchScore,
				"importance": rec.Fields.Importance,
				"agency":     rec.Fields.Agency,
				"tags":       rec.Fields.Tags,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				p.logger.Warn().
					Str("title", intel.Truncate(rec.Article.Title, 40)).
					Err(err).
					Msg("Policy LLM enrichment failed")
				return nil
			}
			rec.Fields.AIInsight = annotation.AIInsight
			rec.Fields.Detail = annotation.Detail
			rec.Fields.Signals = annotation.Signals
			rec.Fields.Tier = intel.TierLLM
			if err := p.saveEnriched(rec.Article, rec.Fields); err != nil {
				return err
			}
			enriched++
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if enriched > 0 {
		if _, _, err := p.rebuildOutputs(p.loadAllEnriched(), false); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"llm_enriched":    enriched,
		"llm_errors":      failures,
		"already_llm":     alreadyLLM,
		"below_threshold": belowThreshold,
		"total":           len(records),
	}, nil
}

// collect loads the policy dimensions, excluding the personnel group which
// belongs to the personnel pipeline.
func (p *Processor) collect() []intel.Article {
	all := intel.CollectArticles(p.store, dimensions...)
	kept := all[:0]
	for _, a := range all {
		if a.Dimension == models.DimensionBeijingPolicy && a.Group == "news_personnel" {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func (p *Processor) enrichedDir() string { return filepath.Join(p.dir, "_enriched") }

func (p *Processor) saveEnriched(a intel.StoredArticle, e *Enrichment) error {
	return storage.WriteJSONAtomic(filepath.Join(p.enrichedDir(), a.URLHash+".json"), enrichedRecord{a, e})
}

func (p *Processor) loadAllEnriched() []enrichedRecord {
	entries, err := os.ReadDir(p.enrichedDir())
	if err != nil {
		return nil
	}
	var records []enrichedRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var rec enrichedRecord
		path := filepath.Join(p.enrichedDir(), entry.Name())
		if err := storage.ReadJSON(path, &rec); err != nil || rec.Fields == nil {
			p.logger.Warn().Str("file", entry.Name()).Msg("Skipping invalid enriched file")
			continue
		}
		if rec.Article.Dimension == models.DimensionBeijingPolicy && rec.Article.Group == "news_personnel" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (p *Processor) rebuildOutputs(records []enrichedRecord, dryRun bool) (int, int, error) {
	feed := make([]FeedItem, 0, len(records))
	var opportunities []OpportunityItem
	for _, rec := range records {
		feed = append(feed, buildFeedItem(rec))
		if opp, ok := buildOpportunityItem(rec); ok {
			opportunities = append(opportunities, opp)
		}
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Date > feed[j].Date })
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].DaysLeft < opportunities[j].DaysLeft
	})

	if dryRun {
		return len(feed), len(opportunities), nil
	}

	if err := intel.SaveOutput(filepath.Join(p.dir, "feed.json"), feed, len(feed), nil); err != nil {
		return 0, 0, err
	}
	if err := intel.SaveOutput(filepath.Join(p.dir, "opportunities.json"), opportunities, len(opportunities), nil); err != nil {
		return 0, 0, err
	}
	return len(feed), len(opportunities), nil
}

// overlayFresh substitutes freshly computed records for their cached
// versions so a dry run counts what a real run would have written
func overlayFresh(cached, fresh []enrichedRecord) []enrichedRecord {
	if len(fresh) == 0 {
		return cached
	}
	byHash := make(map[string]int, len(fresh))
	for i, rec := range fresh {
		byHash[rec.Article.URLHash] = i
	}
	merged := make([]enrichedRecord, 0, len(cached)+len(fresh))
	seen := make(map[string]bool, len(cached))
	for _, rec := range cached {
		if i, ok := byHash[rec.Article.URLHash]; ok {
			rec = fresh[i]
		}
		seen[rec.Article.URLHash] = true
		merged = append(merged, rec)
	}
	for _, rec := range fresh {
		if !seen[rec.Article.URLHash] {
			merged = append(merged, rec)
		}
	}
	return merged
}

func buildFeedItem(rec enrichedRecord) FeedItem {
	article, e := rec.Article, rec.Fields
	view := article.AsArticle()

	merged := append([]string(nil), article.Tags...)
	for _, tag := range e.Tags {
		if !contains(merged, tag) {
			merged = append(merged, tag)
		}
	}

	return FeedItem{
		ID:         article.URLHash,
		Title:      article.Title,
		Summary:    e.Summary,
		Category:   category(article, e),
		Importance: e.Importance,
		Date:       view.Date(),
		Source:     article.SourceName,
		Tags:       merged,
		MatchScore: e.MatchScore,
		Funding:    e.Funding,
		DaysLeft:   e.DaysLeft,
		Leader:     e.Leader,
		Relevance:  e.Relevance,
		Signals:    e.Signals,
		SourceURL:  article.URL,
		AIInsight:  e.AIInsight,
		Detail:     e.Detail,
		Content:    article.Content,
	}
}

func buildOpportunityItem(rec enrichedRecord) (OpportunityItem, bool) {
	article, e := rec.Article, rec.Fields
	if !e.IsOpportunity {
		return OpportunityItem{}, false
	}

	daysLeft := 999
	if e.DaysLeft != nil {
		daysLeft = *e.DaysLeft
	}
	return OpportunityItem{
		ID:         article.URLHash,
		Name:       article.Title,
		Agency:     orDefault(e.Agency, article.SourceName),
		AgencyType: agencyType(article),
		MatchScore: e.MatchScore,
		Funding:    orDefault(e.Funding, "待确认"),
		Deadline:   orDefault(e.Deadline, "待确认"),
		DaysLeft:   daysLeft,
		Status:     opportunityStatus(e.DaysLeft),
		AIInsight:  e.AIInsight,
		Detail:     e.Detail,
		SourceURL:  article.URL,
	}, true
}

// category marks opportunities first, then falls back to the dimension
func category(article intel.StoredArticle, e *Enrichment) string {
	if e.IsOpportunity {
		return "政策机会"
	}
	switch article.Dimension {
	case models.DimensionBeijingPolicy:
		return "北京政策"
	case models.DimensionNationalPolicy:
		return "国家政策"
	default:
		return "一般"
	}
}

func agencyType(article intel.StoredArticle) string {
	switch article.Dimension {
	case models.DimensionNationalPolicy:
		return "national"
	case models.DimensionBeijingPolicy:
		return "beijing"
	default:
		return "ministry"
	}
}

func opportunityStatus(daysLeft *int) string {
	if daysLeft == nil {
		return "tracking"
	}
	switch {
	case *daysLeft <= 7:
		return "urgent"
	case *daysLeft <= 30:
		return "active"
	default:
		return "tracking"
	}
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
