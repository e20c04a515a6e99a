package fetchers

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/browser"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// ErrSelectorMiss means a configured list selector matched nothing; selector
// drift on the source side shows up as a FAILED run, never a crash.
var ErrSelectorMiss = errors.New("list selector matched no elements")

// ErrUnknownFetcherKind is returned by the registry for unrecognized
// fetch_strategy or parser_kind values.
var ErrUnknownFetcherKind = errors.New("unknown fetcher kind")

// Result is a fetch outcome: the surviving items plus the count of non-fatal
// per-item failures (detail pages that could not be fetched or parsed).
type Result struct {
	Items      []models.CrawledItem
	ItemErrors int
}

// Fetcher is one strategy bound to one source definition
type Fetcher interface {
	Fetch(ctx context.Context) (*Result, error)
}

// Renderer is the browser seam the dynamic and faculty strategies render
// through; *browser.Pool satisfies it.
type Renderer interface {
	Render(ctx context.Context, url, waitCondition string, timeout time.Duration) (string, error)
	RenderWithDetails(ctx context.Context, url, waitCondition string, deriveDetails func(listHTML string) []string, detailTimeout time.Duration) (string, map[string]string, error)
}

var _ Renderer = (*browser.Pool)(nil)

// Deps carries the shared machinery every strategy may need
type Deps struct {
	HTTP      *httpclient.Client
	Browser   Renderer
	Snapshots *storage.SnapshotStore
	Config    *common.Config
	Logger    arbor.ILogger
}

// httpOptions builds per-source HTTP options from the definition
func httpOptions(src *models.SourceDefinition) httpclient.Options {
	opts := httpclient.Options{
		Headers:          src.Headers,
		EncodingOverride: src.Encoding,
		RequestDelay:     src.RequestDelayDuration(),
	}
	if src.VerifyTLS != nil {
		opts.VerifyTLS = src.VerifyTLS
	}
	return opts
}

// newItem stamps source identity and canonical hashes onto a crawled item
func newItem(src *models.SourceDefinition, title, url string) models.CrawledItem {
	return models.CrawledItem{
		Title:     title,
		URL:       url,
		URLHash:   common.URLHash(url),
		SourceID:  src.ID,
		Dimension: src.Dimension,
		Tags:      append([]string(nil), src.Tags...),
	}
}

// dedupeByURLHash enforces the per-run uniqueness invariant on url_hash
func dedupeByURLHash(items []models.CrawledItem) []models.CrawledItem {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		if seen[item.URLHash] {
			continue
		}
		seen[item.URLHash] = true
		out = append(out, item)
	}
	return out
}
