package parsers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

const (
	hnTopStoriesURL = "https://hacker-news.firebaseio.com/v0/topstories.json"
	hnItemURLFmt    = "https://hacker-news.firebaseio.com/v0/item/%d.json"

	defaultHNLimit     = 30
	hnFetchConcurrency = 10
)

// defaultAIKeywords filters top stories when the source declares no
// keyword_filter of its own
var defaultAIKeywords = []string{
	"AI", "artificial intelligence", "machine learning", "deep learning",
	"LLM", "GPT", "neural network", "transformer", "diffusion",
	"人工智能", "大模型", "机器学习",
}

type hnStory struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Deleted     bool   `json:"deleted"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
}

// HackerNewsParser fetches top stories through the public Firebase API and
// keeps the ones whose titles match the keyword filter.
type HackerNewsParser struct {
	src        *models.SourceDefinition
	deps       *Deps
	topURL     string
	itemURLFmt string
}

// NewHackerNewsParser builds the hacker_news_api parser
func NewHackerNewsParser(src *models.SourceDefinition, deps *Deps) *HackerNewsParser {
	return &HackerNewsParser{src: src, deps: deps, topURL: hnTopStoriesURL, itemURLFmt: hnItemURLFmt}
}

// Parse implements Parser
func (p *HackerNewsParser) Parse(ctx context.Context) ([]models.CrawledItem, int, error) {
	limit := p.src.MaxResults
	if limit <= 0 {
		limit = defaultHNLimit
	}
	keywords := p.src.KeywordFilter
	if len(keywords) == 0 {
		keywords = defaultAIKeywords
	}

	var storyIDs []int
	if err := p.deps.HTTP.FetchJSON(ctx, p.topURL, httpclientOptions(p.src), &storyIDs); err != nil {
		return nil, 0, fmt.Errorf("top stories fetch failed: %w", err)
	}
	if len(storyIDs) > limit {
		storyIDs = storyIDs[:limit]
	}

	// Story detail fetches run concurrently; individual failures only cost
	// the one story.
	var (
		mu         sync.Mutex
		stories    = make(map[int]*hnStory, len(storyIDs))
		itemErrors int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(hnFetchConcurrency)
	for _, id := range storyIDs {
		group.Go(func() error {
			var story hnStory
			url := fmt.Sprintf(p.itemURLFmt, id)
			if err := p.deps.HTTP.FetchJSON(groupCtx, url, httpclientOptions(p.src), &story); err != nil {
				mu.Lock()
				itemErrors++
				mu.Unlock()
				p.deps.Logger.Warn().
					Str("source_id", p.src.ID).
					Int("story_id", id).
					Err(err).
					Msg("HN story fetch failed")
				return nil
			}
			if story.Type != "story" || story.Deleted {
				return nil
			}
			mu.Lock()
			stories[id] = &story
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, itemErrors, err
	}

	// Emit in top-stories rank order
	var items []models.CrawledItem
	for _, id := range storyIDs {
		story, ok := stories[id]
		if !ok || !titleMatches(story.Title, keywords) {
			continue
		}

		storyURL := story.URL
		if storyURL == "" {
			storyURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", story.ID)
		}

		item := newItem(p.src, story.Title, storyURL)
		item.Author = story.By
		if story.Time > 0 {
			item.PublishedAt = extractor.FormatDate(time.Unix(story.Time, 0).UTC())
		}
		if story.Text != "" {
			item.Content = story.Text
			item.ContentHash = common.ContentHash(story.Text)
		}
		item.Extra = map[string]any{
			"score":    story.Score,
			"comments": story.Descendants,
		}
		items = append(items, item)
	}
	return items, itemErrors, nil
}

func titleMatches(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
