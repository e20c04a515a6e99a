package extractor

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/models"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseListItemsDatesFromURLPath(t *testing.T) {
	html := `<ul class="list">
		<li><a href="/news/t20260215_001.html">First item</a></li>
		<li><a href="/news/t20260220_002.html">Second item</a></li>
	</ul>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem: "ul.list li",
		Title:    "a",
		Link:     "a",
	}, "https://site/news/", nil)

	require.Len(t, items, 2)
	assert.Equal(t, "First item", items[0].Title)
	assert.Equal(t, "https://site/news/t20260215_001.html", items[0].URL)
	assert.Equal(t, "2026-02-15", FormatDate(items[0].PublishedAt))
	assert.Equal(t, "2026-02-20", FormatDate(items[1].PublishedAt))
}

func TestParseListItemsSelfConvention(t *testing.T) {
	html := `<div class="cards">
		<a class="card" href="/a/1">Card one</a>
		<a class="card" href="/a/2">Card two</a>
	</div>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem: "a.card",
		Title:    "_self",
		Link:     "_self",
	}, "https://site/", nil)

	require.Len(t, items, 2)
	assert.Equal(t, "Card one", items[0].Title)
	assert.Equal(t, "https://site/a/1", items[0].URL)
}

func TestParseListItemsCustomLinkAttr(t *testing.T) {
	html := `<ul><li><a data-url="/x/9">Item</a></li></ul>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem: "li",
		Title:    "a",
		Link:     "a",
		LinkAttr: "data-url",
	}, "https://site/", nil)

	require.Len(t, items, 1)
	assert.Equal(t, "https://site/x/9", items[0].URL)
}

func TestParseListItemsKeywordFilter(t *testing.T) {
	html := `<ul>
		<li><a href="/1">人工智能产业政策发布</a></li>
		<li><a href="/2">体育新闻速递</a></li>
	</ul>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem: "li", Title: "a", Link: "a",
	}, "https://site/", []string{"人工智能"})

	require.Len(t, items, 1)
	assert.Contains(t, items[0].Title, "人工智能")
}

func TestParseListItemsTitleDedup(t *testing.T) {
	html := `<ul>
		<li><a href="/a/1">Same story</a></li>
		<li><a href="/b/1">Same story</a></li>
	</ul>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem: "li", Title: "a", Link: "a",
	}, "https://site/", nil)

	require.Len(t, items, 1)
	assert.Equal(t, "https://site/a/1", items[0].URL)
}

func TestParseListItemsDateSelectorWithRegex(t *testing.T) {
	html := `<ul><li>
		<a href="/n/1">Dated item</a>
		<span class="date">发布时间: 2026-03-01</span>
	</li></ul>`
	doc := mustDoc(t, html)

	items := ParseListItems(doc, &models.ListSelectors{
		ListItem:   "li",
		Title:      "a",
		Link:       "a",
		Date:       "span.date",
		DateFormat: "2006-01-02",
		DateRegex:  `\d{4}-\d{2}-\d{2}`,
	}, "https://site/", nil)

	require.Len(t, items, 1)
	assert.Equal(t, "2026-03-01", FormatDate(items[0].PublishedAt))
}

func TestParseDateTextStrptimeFormat(t *testing.T) {
	parsed := ParseDateText("2026/02/13", "%Y/%m/%d", "")
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC), parsed)
}

func TestExtractDateFromURL(t *testing.T) {
	assert.Equal(t, "2025-07-01",
		FormatDate(ExtractDateFromURL("https://gov.example/a/t20250701_123.html")))
	assert.Equal(t, "2025-07-01",
		FormatDate(ExtractDateFromURL("https://gov.example/202507/t123.html")))
	assert.True(t, ExtractDateFromURL("https://gov.example/about.html").IsZero())
}
