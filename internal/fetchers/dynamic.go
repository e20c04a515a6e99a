package fetchers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

// DynamicFetcher renders JavaScript-driven list pages through the browser
// pool. Detail pages reuse the same browser session so cookies carry over,
// unless detail_via_plain_http routes them through the HTTP client.
type DynamicFetcher struct {
	src  *models.SourceDefinition
	deps *Deps
}

// NewDynamicFetcher builds the browser-rendered strategy
func NewDynamicFetcher(src *models.SourceDefinition, deps *Deps) *DynamicFetcher {
	return &DynamicFetcher{src: src, deps: deps}
}

// Fetch implements Fetcher
func (f *DynamicFetcher) Fetch(ctx context.Context) (*Result, error) {
	if f.deps.Browser == nil {
		return nil, fmt.Errorf("dynamic strategy requires the browser pool")
	}

	wantDetails := f.src.DetailSelectors != nil && f.src.DetailSelectors.Content != "" &&
		!f.src.DetailViaPlainHTTP

	if !wantDetails {
		return f.fetchListOnly(ctx)
	}
	return f.fetchWithRenderedDetails(ctx)
}

func (f *DynamicFetcher) fetchListOnly(ctx context.Context) (*Result, error) {
	html, err := f.deps.Browser.Render(ctx, f.src.URL, f.src.WaitCondition, 0)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	listItems, err := f.parseList(html)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	fetchDetail := f.src.DetailSelectors != nil && f.src.DetailSelectors.Content != ""
	for _, raw := range listItems {
		item := newItem(f.src, raw.Title, raw.URL)
		item.PublishedAt = extractor.FormatDate(raw.PublishedAt)

		if fetchDetail {
			// detail_via_plain_http escape hatch
			detailHTML, _, err := f.deps.HTTP.FetchPage(ctx, item.URL, httpOptions(f.src))
			if err != nil {
				result.ItemErrors++
				f.deps.Logger.Warn().
					Str("source_id", f.src.ID).
					Str("url", item.URL).
					Err(err).
					Msg("Detail page failed, item kept without content")
			} else {
				applyDetail(&item, extractor.ParseDetail(detailHTML, f.src.DetailSelectors, item.URL))
			}
		}
		result.Items = append(result.Items, item)
	}

	result.Items = dedupeByURLHash(result.Items)
	return result, nil
}

func (f *DynamicFetcher) fetchWithRenderedDetails(ctx context.Context) (*Result, error) {
	// One render serves both the item list and the detail navigation
	var listItems []extractor.ListItem
	var parseErr error
	_, details, err := f.deps.Browser.RenderWithDetails(ctx, f.src.URL, f.src.WaitCondition,
		func(listHTML string) []string {
			listItems, parseErr = f.parseList(listHTML)
			if parseErr != nil {
				return nil
			}
			urls := make([]string, 0, len(listItems))
			for _, raw := range listItems {
				urls = append(urls, raw.URL)
			}
			return urls
		}, 0)
	if err != nil {
		return nil, fmt.Errorf("detail render session failed: %w", err)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	result := &Result{}
	for _, raw := range listItems {
		item := newItem(f.src, raw.Title, raw.URL)
		item.PublishedAt = extractor.FormatDate(raw.PublishedAt)

		if detailHTML, ok := details[raw.URL]; ok {
			applyDetail(&item, extractor.ParseDetail(detailHTML, f.src.DetailSelectors, item.URL))
		} else {
			result.ItemErrors++
		}
		result.Items = append(result.Items, item)
	}

	result.Items = dedupeByURLHash(result.Items)
	return result, nil
}

func (f *DynamicFetcher) parseList(html string) ([]extractor.ListItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rendered page parse failed: %w", err)
	}
	return extractListItems(doc, f.src)
}
