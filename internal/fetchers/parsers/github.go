package parsers

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/models"
)

const (
	defaultGitHubQuery = "AI language:python"
	defaultGitHubSort  = "stars"
	defaultGitHubLimit = 20

	githubSummaryLimit = 200
)

// GitHubParser surfaces trending repositories through the search API
type GitHubParser struct {
	src    *models.SourceDefinition
	deps   *Deps
	client *github.Client
}

// NewGitHubParser builds the github_api parser. Unauthenticated search is
// enough at the configured crawl frequencies.
func NewGitHubParser(src *models.SourceDefinition, deps *Deps) *GitHubParser {
	return &GitHubParser{src: src, deps: deps, client: github.NewClient(nil)}
}

// WithClient overrides the API client (tests point it at a local server)
func (p *GitHubParser) WithClient(client *github.Client) *GitHubParser {
	p.client = client
	return p
}

// Parse implements Parser
func (p *GitHubParser) Parse(ctx context.Context) ([]models.CrawledItem, int, error) {
	query := p.src.SearchQuery
	if query == "" {
		query = defaultGitHubQuery
	}
	sort := p.src.SortBy
	if sort == "" {
		sort = defaultGitHubSort
	}
	limit := p.src.MaxResults
	if limit <= 0 {
		limit = defaultGitHubLimit
	}

	result, _, err := p.client.Search.Repositories(ctx, query, &github.SearchOptions{
		Sort:        sort,
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repository search failed: %w", err)
	}

	var items []models.CrawledItem
	for i, repo := range result.Repositories {
		if i >= limit {
			break
		}
		title := repo.GetFullName()
		htmlURL := repo.GetHTMLURL()
		if title == "" || htmlURL == "" {
			continue
		}

		item := newItem(p.src, title, htmlURL)
		item.Author = repo.GetOwner().GetLogin()

		if description := repo.GetDescription(); description != "" {
			item.Content = description
			item.ContentHash = common.ContentHash(description)
			item.Summary = truncateRunes(description, githubSummaryLimit)
		}
		if pushed := repo.GetPushedAt(); !pushed.IsZero() {
			item.PublishedAt = extractor.FormatDate(pushed.Time)
		}
		if topics := repo.Topics; len(topics) > 0 {
			item.Tags = append(item.Tags, topics[:min(5, len(topics))]...)
		}
		item.Extra = map[string]any{
			"stars":    repo.GetStargazersCount(),
			"forks":    repo.GetForksCount(),
			"language": repo.GetLanguage(),
		}
		items = append(items, item)
	}
	return items, 0, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
