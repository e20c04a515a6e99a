package storage

import (
	"sort"
	"strings"

	"github.com/ternarybob/argus/internal/models"
)

// ArticleFilter narrows the flattened article listing served by the read API
type ArticleFilter struct {
	Dimension string
	SourceID  string
	Keyword   string
	DateFrom  string // YYYY-MM-DD inclusive
	DateTo    string // YYYY-MM-DD inclusive
	Limit     int
	Offset    int
}

// Articles flattens raw artifacts into a filtered, date-sorted item list.
// Reads are lockless whole-file reads; atomic renames on the write side keep
// them consistent.
func (s *Storage) Articles(filter ArticleFilter) ([]models.CrawledItem, int) {
	var artifacts []*models.RawArtifact
	if filter.Dimension != "" {
		artifacts = s.Artifacts.ListDimension(filter.Dimension)
	} else {
		artifacts = s.Artifacts.ListAll()
	}

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))

	var items []models.CrawledItem
	for _, artifact := range artifacts {
		if filter.SourceID != "" && artifact.SourceID != filter.SourceID {
			continue
		}
		for _, item := range artifact.Items {
			if keyword != "" &&
				!strings.Contains(strings.ToLower(item.Title), keyword) &&
				!strings.Contains(strings.ToLower(item.Summary), keyword) {
				continue
			}
			if filter.DateFrom != "" && item.PublishedAt != "" && item.PublishedAt < filter.DateFrom {
				continue
			}
			if filter.DateTo != "" && item.PublishedAt != "" && item.PublishedAt > filter.DateTo {
				continue
			}
			items = append(items, item)
		}
	}

	// Newest first; undated items sort last
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt > items[j].PublishedAt
	})

	total := len(items)
	if filter.Offset > 0 {
		if filter.Offset >= len(items) {
			return []models.CrawledItem{}, total
		}
		items = items[filter.Offset:]
	}
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, total
}

// DimensionSummary aggregates per-dimension counts for the overview endpoint
type DimensionSummary struct {
	Dimension   string `json:"dimension"`
	SourceCount int    `json:"source_count"`
	ItemCount   int    `json:"item_count"`
	NewCount    int    `json:"new_count"`
	LastCrawled string `json:"last_crawled,omitempty"`
}

// DimensionOverview summarizes every dimension that has raw data
func (s *Storage) DimensionOverview() []DimensionSummary {
	byDim := make(map[string]*DimensionSummary)
	for _, artifact := range s.Artifacts.ListAll() {
		summary, ok := byDim[artifact.Dimension]
		if !ok {
			summary = &DimensionSummary{Dimension: artifact.Dimension}
			byDim[artifact.Dimension] = summary
		}
		summary.SourceCount++
		summary.ItemCount += artifact.ItemCount
		summary.NewCount += artifact.NewItemCount
		crawled := artifact.CrawledAt.Format("2006-01-02T15:04:05Z07:00")
		if crawled > summary.LastCrawled {
			summary.LastCrawled = crawled
		}
	}

	out := make([]DimensionSummary, 0, len(byDim))
	for _, summary := range byDim {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dimension < out[j].Dimension })
	return out
}
