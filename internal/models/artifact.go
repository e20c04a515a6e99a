package models

import "time"

// RawArtifact is the per-source latest.json written after every crawl.
// The file is overwritten wholesale; the delta against the previous run is
// carried by the per-item is_new flags.
type RawArtifact struct {
	SourceID          string        `json:"source_id"`
	Dimension         string        `json:"dimension"`
	Group             string        `json:"group,omitempty"`
	SourceName        string        `json:"source_name"`
	CrawledAt         time.Time     `json:"crawled_at"`
	PreviousCrawledAt *time.Time    `json:"previous_crawled_at,omitempty"`
	ItemCount         int           `json:"item_count"`
	NewItemCount      int           `json:"new_item_count"`
	Items             []CrawledItem `json:"items"`
}

// URLHashes returns the set of url_hash values in the artifact
func (a *RawArtifact) URLHashes() map[string]bool {
	hashes := make(map[string]bool, len(a.Items))
	for _, item := range a.Items {
		hashes[item.URLHash] = true
	}
	return hashes
}

// SourceState is the per-source mutable health record, written only by the
// crawl path. EnabledOverride, when set, wins over the catalog enabled flag.
type SourceState struct {
	LastCrawlAt         *time.Time `json:"last_crawl_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	EnabledOverride     *bool      `json:"is_enabled_override,omitempty"`
}

// RunLog is one bounded crawl-log entry (newest last, capped at 100)
type RunLog struct {
	Timestamp       time.Time `json:"timestamp"`
	Status          string    `json:"status"`
	ItemsTotal      int       `json:"items_total"`
	ItemsNew        int       `json:"items_new"`
	DurationSeconds float64   `json:"duration_seconds"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// SnapshotRecord is one entry in the per-source snapshot history.
// ContentText is retained only on the newest record for diffing.
type SnapshotRecord struct {
	CapturedAt    time.Time `json:"captured_at"`
	ContentHash   string    `json:"content_hash"`
	ContentLength int       `json:"content_length"`
	DiffSummary   string    `json:"diff_summary,omitempty"`
	ContentText   string    `json:"content_text,omitempty"`
}
