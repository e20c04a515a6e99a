package fetchers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// defaultFacultyMaxPages bounds roster pagination
const defaultFacultyMaxPages = 10

// FacultyFetcher extracts structured person cards from university roster
// pages: name, position, bio, email, photo, research areas. Pagination
// follows the configured next-page selector up to max_pages.
type FacultyFetcher struct {
	src  *models.SourceDefinition
	deps *Deps
}

// NewFacultyFetcher builds the roster strategy
func NewFacultyFetcher(src *models.SourceDefinition, deps *Deps) *FacultyFetcher {
	return &FacultyFetcher{src: src, deps: deps}
}

// Fetch implements Fetcher
func (f *FacultyFetcher) Fetch(ctx context.Context) (*Result, error) {
	selectors := f.src.FacultySelectors
	if selectors == nil || selectors.Card == "" {
		return nil, fmt.Errorf("faculty strategy requires faculty_selectors.card")
	}

	maxPages := f.src.MaxPages
	if maxPages <= 0 {
		maxPages = defaultFacultyMaxPages
	}

	result := &Result{}
	pageURL := f.src.URL
	visited := map[string]bool{}

	for page := 0; page < maxPages && pageURL != "" && !visited[pageURL]; page++ {
		visited[pageURL] = true

		html, err := f.fetchHTML(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("roster page fetch failed: %w", err)
			}
			// Later pages degrade gracefully
			result.ItemErrors++
			f.deps.Logger.Warn().
				Str("source_id", f.src.ID).
				Str("url", pageURL).
				Err(err).
				Msg("Roster page failed, keeping earlier pages")
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("roster page parse failed: %w", err)
		}

		cards := doc.Find(selectors.Card)
		if page == 0 && cards.Length() == 0 {
			return nil, fmt.Errorf("%w: %q on %s", ErrSelectorMiss, selectors.Card, pageURL)
		}

		cards.Each(func(_ int, card *goquery.Selection) {
			if item, ok := f.parseCard(card, pageURL); ok {
				result.Items = append(result.Items, item)
			}
		})

		pageURL = f.nextPageURL(doc, pageURL)
	}

	result.Items = dedupeByURLHash(result.Items)
	return result, nil
}

func (f *FacultyFetcher) fetchHTML(ctx context.Context, url string) (string, error) {
	if f.src.WaitCondition != "" && f.deps.Browser != nil {
		return f.deps.Browser.Render(ctx, url, f.src.WaitCondition, 0)
	}
	html, _, err := f.deps.HTTP.FetchPage(ctx, url, httpOptions(f.src))
	return html, err
}

func (f *FacultyFetcher) parseCard(card *goquery.Selection, pageURL string) (models.CrawledItem, bool) {
	selectors := f.src.FacultySelectors

	name := cardText(card, selectors.Name)
	if name == "" {
		return models.CrawledItem{}, false
	}

	profileURL := f.profileURL(card, name, pageURL)
	position := cardText(card, selectors.Position)
	bio := cardText(card, selectors.Bio)
	researchAreas := splitResearchAreas(cardText(card, selectors.ResearchAreas))

	email := cardText(card, selectors.Email)
	if email == "" {
		email = emailRe.FindString(card.Text())
	} else if m := emailRe.FindString(email); m != "" {
		email = m
	}

	var photoURL string
	if selectors.Photo != "" {
		img := card.Find(selectors.Photo).First()
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			photoURL = common.ResolveURL(f.src.NormalizedBaseURL(), src)
		}
	}

	item := newItem(f.src, name, profileURL)
	item.Content = bio
	if bio != "" {
		item.ContentHash = common.ContentHash(bio)
	}
	item.Extra = map[string]any{
		"name":           name,
		"position":       position,
		"bio":            bio,
		"email":          email,
		"photo_url":      photoURL,
		"research_areas": researchAreas,
	}
	return item, true
}

// profileURL prefers a real card link; cards without one get a stable
// name-fragment pseudo-URL so dedup still works per person.
func (f *FacultyFetcher) profileURL(card *goquery.Selection, name, pageURL string) string {
	link := card.Find("a").First()
	href := strings.TrimSpace(link.AttrOr("href", ""))
	lower := strings.ToLower(href)
	if href != "" && href != "#" && !strings.HasPrefix(lower, "javascript:") {
		return common.ResolveURL(f.src.NormalizedBaseURL(), href)
	}
	return fmt.Sprintf("%s#faculty-%s", pageURL, name)
}

func (f *FacultyFetcher) nextPageURL(doc *goquery.Document, currentURL string) string {
	selector := f.src.FacultySelectors.NextPage
	if selector == "" {
		return ""
	}
	next := doc.Find(selector).First()
	href := strings.TrimSpace(next.AttrOr("href", ""))
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	return common.ResolveURL(currentURL, href)
}

func cardText(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(card.Find(selector).First().Text())
}

// splitResearchAreas splits a free-text research line on common Chinese and
// western delimiters
func splitResearchAreas(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ';', '；', ',', '，', '、', '/', '|':
			return true
		}
		return false
	})
	var areas []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			areas = append(areas, trimmed)
		}
	}
	return areas
}
