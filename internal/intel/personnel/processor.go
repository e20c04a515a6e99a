package personnel

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Module is the processed-output directory name
const Module = "personnel_intel"

// Processor runs the personnel analysis over the raw store
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

// FeedItem is one entry of feed.json
type FeedItem struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Date       string   `json:"date"`
	Source     string   `json:"source"`
	Importance string   `json:"importance"`
	MatchScore int      `json:"matchScore"`
	Changes    []Change `json:"changes"`
	SourceURL  string   `json:"sourceUrl"`
}

// EnrichedChange is one entry of enriched_feed.json
type EnrichedChange struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Action           string   `json:"action"`
	Position         string   `json:"position"`
	Department       string   `json:"department,omitempty"`
	Date             string   `json:"date"`
	Source           string   `json:"source"`
	SourceURL        string   `json:"sourceUrl"`
	Relevance        int      `json:"relevance"`
	Importance       string   `json:"importance"`
	Group            string   `json:"group"`
	Note             string   `json:"note,omitempty"`
	ActionSuggestion string   `json:"actionSuggestion,omitempty"`
	Background       string   `json:"background,omitempty"`
	Signals          []string `json:"signals,omitempty"`
	AIInsight        string   `json:"aiInsight,omitempty"`
}

type enrichedArticleFile struct {
	Article intel.StoredArticle `json:"article"`
	Changes []EnrichedChange    `json:"enriched_changes"`
}

// Process extracts changes from every personnel article and rebuilds
// feed.json and changes.json. The hash tracker only gates the incremental
// accounting; the outputs are always rebuilt from all current articles.
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

	feed := make([]FeedItem, 0, len(articles))
	var allChanges []Change
	for i := range articles {
		a := &articles[i]
		enrichment := EnrichByRules(a)
		feed = append(feed, FeedItem{
			ID:         a.URLHash,
			Title:      a.Title,
			Date:       a.Date(),
			Source:     a.SourceName,
			Importance: enrichment.Importance,
			MatchScore: enrichment.MatchScore,
			Changes:    enrichment.Changes,
			SourceURL:  a.URL,
		})
		allChanges = append(allChanges, enrichment.Changes...)
	}
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Date > feed[j].Date })
	sort.SliceStable(allChanges, func(i, j int) bool { return allChanges[i].Date > allChanges[j].Date })

	if !opts.DryRun {
		if err := intel.SaveOutput(filepath.Join(p.dir, "feed.json"), feed, len(feed), nil); err != nil {
			return nil, err
		}
		if err := intel.SaveOutput(filepath.Join(p.dir, "changes.json"), allChanges, len(allChanges), nil); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Int("unique", len(articles)).
		Int("feed_items", len(feed)).
		Int("changes", len(allChanges)).
		Bool("dry_run", opts.DryRun).
		Msg("Personnel processing finished")

	return map[string]any{
		"unique":               len(articles),
		"new_processed":        newCount,
		"previously_processed": previously,
		"feed_items":           len(feed),
		"changes_extracted":    len(allChanges),
	}, nil
}

// EnrichLLM annotates each change of articles not yet enriched, caches the
// result per article, and rebuilds enriched_feed.json from the full cache.
func (p *Processor) EnrichLLM(ctx context.Context, annotator intel.Annotator, concurrency int) (map[string]any, error) {
	articles := p.collect()

	type withChanges struct {
		article *intel.Article
		changes []Change
	}
	var candidates []withChanges
	for i := range articles {
		a := &articles[i]
		if changes := ExtractChanges(a); len(changes) > 0 {
			candidates = append(candidates, withChanges{a, changes})
		}
	}
	if len(candidates) == 0 {
		return map[string]any{"skipped": true, "reason": "no changes to enrich"}, nil
	}

	tracker := intel.LoadTracker(filepath.Join(p.dir, "_enriched_hashes.json"))
	pending := candidates[:0]
	for _, c := range candidates {
		if tracker.ShouldProcess(c.article.URLHash, c.article.ContentHash, false) {
			pending = append(pending, c)
		}
	}

	var (
		mu       sync.Mutex
		enriched int
		failures int
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, c := range pending {
		c := c
		group.Go(func() error {
			out := make([]EnrichedChange, 0, len(c.changes))
			for _, change := range c.changes {
				annotation, err := annotator.Annotate(gctx, Module, *c.article, map[string]any{
					"name":       change.Name,
					"action":     change.Action,
					"position":   change.Position,
					"department": change.Department,
				})
				if err != nil {
					mu.Lock()
					failures++
					mu.Unlock()
					p.logger.Warn().
						Str("name", change.Name).
						Err(err).
						Msg("Personnel LLM enrichment failed")
					return nil
				}
				out = append(out, buildEnrichedChange(change, c.article, annotation))
			}
			if err := p.saveEnrichedArticle(c.article, out); err != nil {
				return err
			}
			mu.Lock()
			tracker.Mark(c.article.URLHash, c.article.ContentHash)
			enriched++
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if enriched > 0 {
		if err := tracker.Save(); err != nil {
			return nil, err
		}
	}

	all := p.loadAllEnrichedChanges()
	sort.SliceStable(all, func(i, j int) bool {
		gi, gj := groupRank(all[i].Group), groupRank(all[j].Group)
		if gi != gj {
			return gi < gj
		}
		if all[i].Relevance != all[j].Relevance {
			return all[i].Relevance > all[j].Relevance
		}
		return all[i].Date < all[j].Date
	})

	actionCount := 0
	for _, c := range all {
		if c.Group == "action" {
			actionCount++
		}
	}
	err := storage.WriteJSONAtomic(filepath.Join(p.dir, "enriched_feed.json"), map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"total_count":  len(all),
		"action_count": actionCount,
		"watch_count":  len(all) - actionCount,
		"items":        all,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"llm_enriched_articles":  enriched,
		"llm_errors":             failures,
		"total_enriched_changes": len(all),
		"action_count":           actionCount,
		"watch_count":            len(all) - actionCount,
	}, nil
}

func (p *Processor) collect() []intel.Article {
	return intel.CollectArticles(p.store, models.DimensionPersonnel)
}

func (p *Processor) enrichedDir() string { return filepath.Join(p.dir, "_enriched") }

func (p *Processor) saveEnrichedArticle(a *intel.Article, changes []EnrichedChange) error {
	return storage.WriteJSONAtomic(
		filepath.Join(p.enrichedDir(), a.URLHash+".json"),
		enrichedArticleFile{Article: a.Stored(), Changes: changes})
}

func (p *Processor) loadAllEnrichedChanges() []EnrichedChange {
	entries, err := os.ReadDir(p.enrichedDir())
	if err != nil {
		return nil
	}
	var all []EnrichedChange
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var file enrichedArticleFile
		if err := storage.ReadJSON(filepath.Join(p.enrichedDir(), entry.Name()), &file); err != nil {
			p.logger.Warn().Str("file", entry.Name()).Msg("Skipping invalid enriched file")
			continue
		}
		all = append(all, file.Changes...)
	}
	return all
}

func buildEnrichedChange(change Change, a *intel.Article, annotation *intel.Annotation) EnrichedChange {
	date := change.Date
	if date == "" {
		date = a.Date()
	}
	relevance := annotation.Relevance
	if relevance == 0 {
		relevance = 10
	}
	return EnrichedChange{
		ID:               ChangeID(change),
		Name:             change.Name,
		Action:           change.Action,
		Position:         change.Position,
		Department:       change.Department,
		Date:             date,
		Source:           a.SourceName,
		SourceURL:        a.URL,
		Relevance:        relevance,
		Importance:       orDefault(annotation.Importance, intel.ImportanceNormal),
		Group:            orDefault(annotation.Group, "watch"),
		Note:             annotation.Note,
		ActionSuggestion: annotation.ActionSuggestion,
		Background:       annotation.Background,
		Signals:          annotation.Signals,
		AIInsight:        annotation.AIInsight,
	}
}

func groupRank(group string) int {
	if group == "action" {
		return 0
	}
	return 1
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
