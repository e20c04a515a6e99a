package fetchers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

// StaticFetcher handles server-rendered HTML list pages: one GET for the
// list, one GET per item when detail selectors are configured.
type StaticFetcher struct {
	src  *models.SourceDefinition
	deps *Deps
}

// NewStaticFetcher builds the static HTML strategy
func NewStaticFetcher(src *models.SourceDefinition, deps *Deps) *StaticFetcher {
	return &StaticFetcher{src: src, deps: deps}
}

// Fetch implements Fetcher
func (f *StaticFetcher) Fetch(ctx context.Context) (*Result, error) {
	html, _, err := f.deps.HTTP.FetchPage(ctx, f.src.URL, httpOptions(f.src))
	if err != nil {
		return nil, fmt.Errorf("list page fetch failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("list page parse failed: %w", err)
	}

	listItems, err := extractListItems(doc, f.src)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, raw := range listItems {
		item := newItem(f.src, raw.Title, raw.URL)
		item.PublishedAt = extractor.FormatDate(raw.PublishedAt)

		if f.src.DetailSelectors != nil && f.src.DetailSelectors.Content != "" {
			if err := f.fillDetail(ctx, &item); err != nil {
				result.ItemErrors++
				f.deps.Logger.Warn().
					Str("source_id", f.src.ID).
					Str("url", item.URL).
					Err(err).
					Msg("Detail page failed, item kept without content")
			}
		}
		result.Items = append(result.Items, item)
	}

	result.Items = dedupeByURLHash(result.Items)
	return result, nil
}

func (f *StaticFetcher) fillDetail(ctx context.Context, item *models.CrawledItem) error {
	detailHTML, _, err := f.deps.HTTP.FetchPage(ctx, item.URL, httpOptions(f.src))
	if err != nil {
		return err
	}
	applyDetail(item, extractor.ParseDetail(detailHTML, f.src.DetailSelectors, item.URL))
	return nil
}

// extractListItems runs the shared list extraction and maps an empty
// selector match to ErrSelectorMiss.
func extractListItems(doc *goquery.Document, src *models.SourceDefinition) ([]extractor.ListItem, error) {
	selectors := src.ListSelectors
	if selectors == nil {
		selectors = &models.ListSelectors{}
	}

	listSelector := selectors.ListItem
	if listSelector == "" {
		listSelector = "li"
	}
	if doc.Find(listSelector).Length() == 0 {
		return nil, fmt.Errorf("%w: %q on %s", ErrSelectorMiss, listSelector, src.URL)
	}

	return extractor.ParseListItems(doc, selectors, src.NormalizedBaseURL(), src.KeywordFilter), nil
}

// applyDetail copies detail-extraction output onto the item
func applyDetail(item *models.CrawledItem, detail extractor.DetailResult) {
	item.Content = detail.Content
	item.ContentHTML = detail.ContentHTML
	item.ContentHash = detail.ContentHash
	if detail.Author != "" {
		item.Author = detail.Author
	}

	if detail.PDFURL != "" || len(detail.Images) > 0 || len(detail.Sections) > 0 {
		if item.Extra == nil {
			item.Extra = map[string]any{}
		}
		if detail.PDFURL != "" {
			item.Extra["pdf_url"] = detail.PDFURL
		}
		if len(detail.Images) > 0 {
			item.Extra["images"] = detail.Images
		}
		for field, value := range detail.Sections {
			item.Extra[field] = value
		}
	}
}
