package fetchers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

// defaultMaxEntries bounds RSS ingestion per feed
const defaultMaxEntries = 50

// RSSFetcher ingests RSS 2.0 / Atom / RDF feeds. Entry HTML is pushed
// through the shared sanitizer so feed-borne markup obeys the same tag
// whitelist as scraped pages.
type RSSFetcher struct {
	src    *models.SourceDefinition
	deps   *Deps
	parser *gofeed.Parser
}

// NewRSSFetcher builds the feed strategy
func NewRSSFetcher(src *models.SourceDefinition, deps *Deps) *RSSFetcher {
	return &RSSFetcher{src: src, deps: deps, parser: gofeed.NewParser()}
}

// Fetch implements Fetcher
func (f *RSSFetcher) Fetch(ctx context.Context) (*Result, error) {
	body, _, err := f.deps.HTTP.FetchPage(ctx, f.src.URL, httpOptions(f.src))
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}

	feed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("feed parse failed: %w", err)
	}

	maxEntries := f.src.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	result := &Result{}
	for i, entry := range feed.Items {
		if i >= maxEntries {
			break
		}
		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		item := newItem(f.src, title, link)

		if entry.PublishedParsed != nil {
			item.PublishedAt = extractor.FormatDate(*entry.PublishedParsed)
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = extractor.FormatDate(*entry.UpdatedParsed)
		}

		if len(entry.Authors) > 0 {
			item.Author = entry.Authors[0].Name
		}

		rawContent := entry.Content
		if rawContent == "" {
			rawContent = entry.Description
		}
		if rawContent != "" {
			item.ContentHTML = extractor.SanitizeHTML(rawContent, link)
			item.Content = extractor.HTMLToText(item.ContentHTML)
			if item.Content != "" {
				item.ContentHash = common.ContentHash(item.Content)
			}
		}
		if entry.Description != "" {
			item.Summary = extractor.HTMLToText(entry.Description)
		}

		if len(entry.Categories) > 0 {
			item.Extra = map[string]any{"categories": entry.Categories}
		}

		result.Items = append(result.Items, item)
	}

	result.Items = dedupeByURLHash(result.Items)
	return result, nil
}
