package parsers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

const arxivAPIURL = "http://export.arxiv.org/api/query"

const (
	defaultArxivQuery = "cat:cs.AI"
	defaultArxivSort  = "submittedDate"
	defaultArxivLimit = 20
	maxListedAuthors  = 5
)

// ArxivParser fetches recent papers through the ArXiv Atom API
type ArxivParser struct {
	src    *models.SourceDefinition
	deps   *Deps
	feed   *gofeed.Parser
	apiURL string
}

// NewArxivParser builds the arxiv_api parser
func NewArxivParser(src *models.SourceDefinition, deps *Deps) *ArxivParser {
	return &ArxivParser{src: src, deps: deps, feed: gofeed.NewParser(), apiURL: arxivAPIURL}
}

// Parse implements Parser
func (p *ArxivParser) Parse(ctx context.Context) ([]models.CrawledItem, int, error) {
	query := p.src.SearchQuery
	if query == "" {
		query = defaultArxivQuery
	}
	sortBy := p.src.SortBy
	if sortBy == "" {
		sortBy = defaultArxivSort
	}
	limit := p.src.MaxResults
	if limit <= 0 {
		limit = defaultArxivLimit
	}

	params := url.Values{
		"search_query": {query},
		"sortBy":       {sortBy},
		"sortOrder":    {"descending"},
		"max_results":  {strconv.Itoa(limit)},
	}
	queryURL := p.apiURL + "?" + params.Encode()

	body, _, err := p.deps.HTTP.FetchPage(ctx, queryURL, httpclientOptions(p.src))
	if err != nil {
		return nil, 0, fmt.Errorf("arxiv query failed: %w", err)
	}

	feed, err := p.feed.ParseString(body)
	if err != nil {
		return nil, 0, fmt.Errorf("arxiv feed parse failed: %w", err)
	}

	var items []models.CrawledItem
	for i, entry := range feed.Items {
		if i >= limit {
			break
		}
		title := collapseWhitespace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		item := newItem(p.src, title, link)
		item.Author = formatAuthors(entry.Authors)

		if abstract := collapseWhitespace(entry.Description); abstract != "" {
			item.Content = abstract
			item.ContentHash = common.ContentHash(abstract)
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = extractor.FormatDate(*entry.PublishedParsed)
		}
		if len(entry.Categories) > 0 {
			item.Tags = append(item.Tags, entry.Categories[:min(3, len(entry.Categories))]...)
			item.Extra = map[string]any{"categories": entry.Categories}
		}

		items = append(items, item)
	}
	return items, 0, nil
}

// formatAuthors lists up to five names, then summarizes the rest
func formatAuthors(authors []*gofeed.Person) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) <= maxListedAuthors {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s et al. (%d authors)",
		strings.Join(names[:maxListedAuthors], ", "), len(names))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
