package fetchers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

// SnapshotFetcher watches pages without news lists (leadership rosters,
// directories) by hashing the content area and diffing against the last
// stored snapshot. An unchanged page yields zero items; a change yields
// exactly one item keyed by a #snapshot-<hash12> fragment so every content
// version gets a distinct url_hash.
type SnapshotFetcher struct {
	src  *models.SourceDefinition
	deps *Deps
}

// NewSnapshotFetcher builds the change-detection strategy
func NewSnapshotFetcher(src *models.SourceDefinition, deps *Deps) *SnapshotFetcher {
	return &SnapshotFetcher{src: src, deps: deps}
}

// Fetch implements Fetcher
func (f *SnapshotFetcher) Fetch(ctx context.Context) (*Result, error) {
	html, _, err := f.deps.HTTP.FetchPage(ctx, f.src.URL, httpOptions(f.src))
	if err != nil {
		return nil, fmt.Errorf("snapshot fetch failed: %w", err)
	}

	text, err := f.extractContent(html)
	if err != nil {
		return nil, err
	}

	contentHash := common.ContentHash(text)

	last, err := f.deps.Snapshots.Latest(f.src.ID)
	if err != nil {
		f.deps.Logger.Warn().
			Str("source_id", f.src.ID).
			Err(err).
			Msg("Snapshot history unreadable, treating as first snapshot")
		last = nil
	}

	if last != nil && last.ContentHash == contentHash {
		return &Result{}, nil
	}

	var diffText string
	if last != nil && last.ContentText != "" {
		diffText = unifiedDiff(last.ContentText, text)
	}

	record := models.SnapshotRecord{
		CapturedAt:    time.Now().UTC(),
		ContentHash:   contentHash,
		ContentLength: len(text),
		DiffSummary:   diffText,
		ContentText:   text,
	}
	if err := f.deps.Snapshots.Append(f.src.ID, record); err != nil {
		return nil, fmt.Errorf("snapshot store failed: %w", err)
	}

	itemURL := fmt.Sprintf("%s#snapshot-%s", f.src.URL, contentHash[:12])
	item := newItem(f.src, fmt.Sprintf("[变更检测] %s", f.src.Name), itemURL)
	item.ContentHash = contentHash
	item.Tags = append(item.Tags, "snapshot_diff")
	if diffText != "" {
		item.Content = diffText
	} else {
		item.Content = "初次快照: " + truncate(text, 500)
	}
	item.Extra = map[string]any{"is_first_snapshot": last == nil}

	return &Result{Items: []models.CrawledItem{item}}, nil
}

// extractContent selects the configured content area, falls back to the
// whole page, and strips the ignore patterns before hashing.
func (f *SnapshotFetcher) extractContent(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("snapshot page parse failed: %w", err)
	}

	var text string
	if f.src.ContentArea != "" {
		el := doc.Find(f.src.ContentArea).First()
		if el.Length() > 0 {
			inner, err := goquery.OuterHtml(el)
			if err == nil {
				text = extractor.HTMLToText(inner)
			}
		}
	} else {
		text = extractor.HTMLToText(html)
	}

	for _, pattern := range f.src.IgnorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			f.deps.Logger.Warn().
				Str("source_id", f.src.ID).
				Str("pattern", pattern).
				Msg("Invalid ignore pattern skipped")
			continue
		}
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text), nil
}

func unifiedDiff(before, after string) string {
	diff := difflib.UnifiedDiff{
		A:       difflib.SplitLines(before),
		B:       difflib.SplitLines(after),
		Context: 2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
