package extractor

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
)

// ListItem is the intermediate result of list-page parsing
type ListItem struct {
	Title       string
	URL         string
	PublishedAt time.Time
}

// selectTarget resolves the "_self" convention: "_self" (or empty) means the
// list-item element itself, anything else is a sub-selector.
func selectTarget(el *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" || selector == "_self" {
		return el
	}
	match := el.Find(selector).First()
	if match.Length() == 0 {
		return nil
	}
	return match
}

// ParseListItems extracts (title, absolute URL, date) triples from a parsed
// list page. Date resolution order: configured selector+format, then URL
// path patterns. Items are deduplicated by title; some sites expose the same
// article under multiple URL paths.
func ParseListItems(doc *goquery.Document, selectors *models.ListSelectors, baseURL string, keywordFilter []string) []ListItem {
	logger := common.GetLogger()

	listSelector := selectors.ListItem
	if listSelector == "" {
		listSelector = "li"
	}
	titleSelector := selectors.Title
	if titleSelector == "" {
		titleSelector = "a"
	}
	linkSelector := selectors.Link
	if linkSelector == "" {
		linkSelector = "a"
	}
	linkAttr := selectors.LinkAttr
	if linkAttr == "" {
		linkAttr = "href"
	}

	var items []ListItem
	doc.Find(listSelector).Each(func(_ int, el *goquery.Selection) {
		titleEl := selectTarget(el, titleSelector)
		if titleEl == nil {
			return
		}
		title := strings.TrimSpace(titleEl.Text())
		if title == "" {
			return
		}

		linkEl := selectTarget(el, linkSelector)
		if linkEl == nil {
			return
		}
		rawLink := strings.TrimSpace(linkEl.AttrOr(linkAttr, ""))
		if rawLink == "" {
			return
		}
		absURL := common.ResolveURL(baseURL, rawLink)

		if len(keywordFilter) > 0 && !matchesKeywords(title, keywordFilter) {
			return
		}

		publishedAt := extractElementDate(el, selectors)
		if publishedAt.IsZero() {
			publishedAt = ExtractDateFromURL(absURL)
		}

		items = append(items, ListItem{Title: title, URL: absURL, PublishedAt: publishedAt})
	})

	deduped := dedupeByTitle(items)
	if len(deduped) < len(items) {
		logger.Debug().
			Int("before", len(items)).
			Int("after", len(deduped)).
			Msg("Title dedup dropped duplicate list entries")
	}
	return deduped
}

// extractElementDate tries the date selector with two text renderings: plain
// joined text for inline dates, then space-separated for split markup like
// <p>12</p><span>2026.02</span>.
func extractElementDate(el *goquery.Selection, selectors *models.ListSelectors) time.Time {
	if selectors.Date == "" || selectors.DateFormat == "" {
		return time.Time{}
	}
	dateEl := el.Find(selectors.Date).First()
	if dateEl.Length() == 0 {
		return time.Time{}
	}

	plain := strings.TrimSpace(dateEl.Text())
	spaced := strings.Join(strings.Fields(dateEl.Text()), " ")
	for _, text := range []string{plain, spaced} {
		if t := ParseDateText(text, selectors.DateFormat, selectors.DateRegex); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// matchesKeywords is a case-insensitive substring whitelist
func matchesKeywords(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func dedupeByTitle(items []ListItem) []ListItem {
	seen := make(map[string]bool, len(items))
	deduped := items[:0:0]
	for _, item := range items {
		if seen[item.Title] {
			continue
		}
		seen[item.Title] = true
		deduped = append(deduped, item)
	}
	return deduped
}
