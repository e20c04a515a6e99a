// Package parsers holds the API-backed crawlers: sources that talk to a
// structured endpoint (Atom, Firebase, GitHub search, twitterapi.io) instead
// of scraping HTML. They are selected by parser_kind in the catalog.
package parsers

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
)

// Parser produces items plus a count of non-fatal per-item failures
type Parser interface {
	Parse(ctx context.Context) (items []models.CrawledItem, itemErrors int, err error)
}

// Deps is the machinery shared by all API parsers
type Deps struct {
	HTTP   *httpclient.Client
	Config *common.Config
	Logger arbor.ILogger
}

// httpclientOptions maps per-source overrides onto HTTP options
func httpclientOptions(src *models.SourceDefinition) httpclient.Options {
	return httpclient.Options{
		Headers:      src.Headers,
		RequestDelay: src.RequestDelayDuration(),
		VerifyTLS:    src.VerifyTLS,
	}
}

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
