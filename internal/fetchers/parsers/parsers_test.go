package parsers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	cfg := common.NewDefaultConfig()
	return &Deps{
		HTTP: httpclient.New(&common.CrawlerConfig{
			MaxConcurrentPerDomain: 4,
			RequestTimeout:         5 * time.Second,
			MaxRetries:             1,
			MaxBodySize:            1 << 20,
		}),
		Config: cfg,
		Logger: common.GetLogger(),
	}
}

const arxivAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Scaling Laws
 Revisited</title>
    <link href="http://arxiv.org/abs/2608.01234v1"/>
    <summary>We study scaling behavior.</summary>
    <published>2026-08-20T12:00:00Z</published>
    <author><name>A One</name></author>
    <author><name>B Two</name></author>
    <author><name>C Three</name></author>
    <author><name>D Four</name></author>
    <author><name>E Five</name></author>
    <author><name>F Six</name></author>
    <category term="cs.AI"/>
    <category term="cs.LG"/>
  </entry>
</feed>`

func TestArxivParser(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivAtom)
	}))
	defer server.Close()

	src := &models.SourceDefinition{
		ID:         "arxiv_cs_ai",
		Name:       "ArXiv cs.AI",
		Dimension:  models.DimensionTechnology,
		ParserKind: "arxiv_api",
	}
	parser := NewArxivParser(src, testDeps(t))
	parser.apiURL = server.URL

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, itemErrors)
	require.Len(t, items, 1)

	assert.Equal(t, "cat:cs.AI", gotQuery.Get("search_query"))
	assert.Equal(t, "submittedDate", gotQuery.Get("sortBy"))
	assert.Equal(t, "descending", gotQuery.Get("sortOrder"))

	item := items[0]
	assert.Equal(t, "Scaling Laws Revisited", item.Title)
	assert.Equal(t, "http://arxiv.org/abs/2608.01234v1", item.URL)
	assert.Equal(t, "2026-08-20", item.PublishedAt)
	assert.Equal(t, "A One, B Two, C Three, D Four, E Five et al. (6 authors)", item.Author)
	assert.Contains(t, item.Tags, "cs.AI")
	assert.Equal(t, "We study scaling behavior.", item.Content)
}

func TestHackerNewsParser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]int{1, 2, 3})
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/item/"), ".json")
		switch id {
		case "1":
			json.NewEncoder(w).Encode(map[string]any{
				"id": 1, "type": "story", "title": "New LLM benchmark released",
				"url": "https://example.com/bench", "by": "pg", "time": 1787000000,
				"score": 310, "descendants": 57,
			})
		case "2":
			// No AI keyword, filtered out
			json.NewEncoder(w).Encode(map[string]any{
				"id": 2, "type": "story", "title": "Show HN: my static site generator",
				"url": "https://example.com/ssg", "time": 1787000000,
			})
		default:
			// Ask HN style story without an external URL
			json.NewEncoder(w).Encode(map[string]any{
				"id": 3, "type": "story", "title": "Ask HN: best GPT workflow?",
				"text": "What works for you?", "time": 1787000000,
			})
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := &models.SourceDefinition{
		ID:         "hn_top",
		Name:       "Hacker News",
		Dimension:  models.DimensionTechnology,
		ParserKind: "hacker_news_api",
	}
	parser := NewHackerNewsParser(src, testDeps(t))
	parser.topURL = server.URL + "/topstories.json"
	parser.itemURLFmt = server.URL + "/item/%d.json"

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, itemErrors)
	require.Len(t, items, 2)

	assert.Equal(t, "New LLM benchmark released", items[0].Title)
	assert.Equal(t, 310, items[0].Extra["score"])
	assert.Equal(t, "https://news.ycombinator.com/item?id=3", items[1].URL)
	assert.Equal(t, "What works for you?", items[1].Content)
}

func TestHackerNewsParserStoryFailureCounted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]int{1, 2})
	})
	mux.HandleFunc("/item/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/item/2") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "type": "story", "title": "AI wins again",
			"url": "https://example.com/win", "time": 1787000000,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	src := &models.SourceDefinition{ID: "hn_top", ParserKind: "hacker_news_api"}
	parser := NewHackerNewsParser(src, testDeps(t))
	parser.topURL = server.URL + "/topstories.json"
	parser.itemURLFmt = server.URL + "/item/%d.json"

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, itemErrors)
	assert.Len(t, items, 1)
}

func TestGitHubParser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AI language:python", r.URL.Query().Get("q"))
		assert.Equal(t, "stars", r.URL.Query().Get("sort"))
		json.NewEncoder(w).Encode(map[string]any{
			"total_count": 1,
			"items": []map[string]any{{
				"full_name":        "acme/llm-kit",
				"html_url":         "https://github.com/acme/llm-kit",
				"description":      "Toolkit for LLM pipelines",
				"pushed_at":        "2026-08-19T10:00:00Z",
				"owner":            map[string]any{"login": "acme"},
				"topics":           []string{"llm", "python"},
				"stargazers_count": 4200,
				"forks_count":      310,
				"language":         "Python",
			}},
		})
	}))
	defer server.Close()

	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client := github.NewClient(nil)
	client.BaseURL = baseURL

	src := &models.SourceDefinition{
		ID:         "github_trending",
		Name:       "GitHub Trending",
		Dimension:  models.DimensionTechnology,
		ParserKind: "github_api",
	}
	parser := NewGitHubParser(src, testDeps(t)).WithClient(client)

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, itemErrors)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "acme/llm-kit", item.Title)
	assert.Equal(t, "acme", item.Author)
	assert.Equal(t, "2026-08-19", item.PublishedAt)
	assert.Equal(t, 4200, item.Extra["stars"])
	assert.Contains(t, item.Tags, "llm")
}

func tweetJSON(id, text, user string, likes int) map[string]any {
	return map[string]any{
		"type": "tweet", "id": id, "text": text,
		"url":       "https://x.com/" + user + "/status/" + id,
		"createdAt": "Mon Aug 24 08:00:00 +0000 2026",
		"likeCount": likes, "retweetCount": 2, "lang": "en",
		"author": map[string]any{"name": "User " + user, "userName": user, "followers": 1000},
	}
}

func TestTwitterSearchParser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweet/advanced_search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "Latest", r.URL.Query().Get("queryType"))
		json.NewEncoder(w).Encode(map[string]any{
			"tweets": []map[string]any{
				tweetJSON("1", "AI breakthrough announced", "alice", 50),
				tweetJSON("2", "low engagement post", "bob", 1),
				{"type": "retweet", "id": "3", "text": "RT something"},
			},
		})
	}))
	defer server.Close()

	deps := testDeps(t)
	deps.Config.Twitter.APIKey = "test-key"

	src := &models.SourceDefinition{
		ID:           "twitter_ai",
		Dimension:    models.DimensionSentiment,
		ParserKind:   "twitter_search",
		TwitterQuery: `"AI breakthrough"`,
		MinLikes:     10,
	}
	parser := NewTwitterSearchParser(src, deps).WithBaseURL(server.URL)

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, itemErrors)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "AI breakthrough announced", item.Title)
	assert.Equal(t, "User alice (@alice)", item.Author)
	assert.Equal(t, "2026-08-24", item.PublishedAt)
	assert.Contains(t, item.Tags, "@alice")
	assert.Equal(t, `"AI breakthrough"`, item.Extra["search_query"])
}

func TestTwitterSearchParserUnconfigured(t *testing.T) {
	src := &models.SourceDefinition{ID: "twitter_ai", ParserKind: "twitter_search", TwitterQuery: "AI"}
	_, _, err := NewTwitterSearchParser(src, testDeps(t)).Parse(context.Background())
	assert.ErrorIs(t, err, ErrTwitterNotConfigured)
}

func TestTwitterKOLParserSortsByEngagement(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/last_tweets", func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("userName")
		likes := 10
		if user == "bob" {
			likes = 90
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"tweets": []map[string]any{tweetJSON(user+"-1", "thoughts on AI from "+user, user, likes)},
			},
		})
	})
	mux.HandleFunc("/user/info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]any{"description": "AI researcher", "location": "SF"},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	deps := testDeps(t)
	deps.Config.Twitter.APIKey = "test-key"

	src := &models.SourceDefinition{
		ID:              "twitter_kol",
		Dimension:       models.DimensionTechnology,
		ParserKind:      "twitter_kol",
		TwitterAccounts: []string{"alice", "bob"},
	}
	parser := NewTwitterKOLParser(src, deps).WithBaseURL(server.URL)

	items, itemErrors, err := parser.Parse(context.Background())
	require.NoError(t, err)
	assert.Zero(t, itemErrors)
	require.Len(t, items, 2)

	// Engagement sort puts bob's 90-like tweet first
	assert.Contains(t, items[0].Title, "bob")
	assert.Equal(t, "AI researcher", items[0].Extra["author_bio"])
	assert.Contains(t, items[0].Tags, "lang:en")
}
