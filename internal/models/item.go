package models

import "time"

// ImageRef is one image found in a detail page
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// CrawledItem is one entry produced by a fetcher. URLHash over the
// canonicalized URL is the dedup key; within one crawl result the hashes
// are unique.
type CrawledItem struct {
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	URLHash     string         `json:"url_hash"`
	PublishedAt string         `json:"published_at,omitempty"` // YYYY-MM-DD, empty when unknown
	Author      string         `json:"author,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Content     string         `json:"content,omitempty"`
	ContentHTML string         `json:"content_html,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"` // empty iff Content is empty
	SourceID    string         `json:"source_id"`
	Dimension   string         `json:"dimension"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	IsNew       bool           `json:"is_new"`
}

// Crawl result statuses per run classification
const (
	CrawlStatusSuccess      = "SUCCESS"
	CrawlStatusNoNewContent = "NO_NEW_CONTENT"
	CrawlStatusPartial      = "PARTIAL"
	CrawlStatusFailed       = "FAILED"
)

// CrawlResult is the standard record of one source run
type CrawlResult struct {
	SourceID        string        `json:"source_id"`
	Status          string        `json:"status"`
	ItemsTotal      int           `json:"items_total"`
	ItemsNew        int           `json:"items_new"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	DurationSeconds float64       `json:"duration_seconds"`
	ErrorMessage    string        `json:"error_message,omitempty"`
	Items           []CrawledItem `json:"items,omitempty"`
}

// ClassifyCrawlStatus applies the status predicates: SUCCESS needs items and
// no errors, NO_NEW_CONTENT is a clean empty run, item-level errors with
// surviving items downgrade to PARTIAL, anything else is FAILED.
func ClassifyCrawlStatus(itemsTotal int, itemErrors int, fatal bool) string {
	switch {
	case fatal:
		return CrawlStatusFailed
	case itemsTotal > 0 && itemErrors == 0:
		return CrawlStatusSuccess
	case itemsTotal > 0 && itemErrors > 0:
		return CrawlStatusPartial
	case itemErrors == 0:
		return CrawlStatusNoNewContent
	default:
		return CrawlStatusFailed
	}
}
