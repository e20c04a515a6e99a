package parsers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/extractor"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
)

// twitterapi.io wraps the platform API behind a flat JSON surface keyed by
// x-api-key. Endpoints used: /user/last_tweets, /tweet/advanced_search,
// /user/info.
const twitterAPIBase = "https://api.twitterapi.io/twitter"

// createdAt format used by twitterapi.io
const tweetTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

const (
	defaultTweetsPerAccount = 20
	defaultSearchTweets     = 20
	defaultQueryType        = "Latest"
	tweetTitleLimit         = 120
	quotedTextLimit         = 500
)

// ErrTwitterNotConfigured fails the run when a twitter source is enabled
// without TWITTER_API_KEY
var ErrTwitterNotConfigured = errors.New("TWITTER_API_KEY not configured")

type tweetAuthor struct {
	Name           string `json:"name"`
	UserName       string `json:"userName"`
	Followers      int    `json:"followers"`
	ProfilePicture string `json:"profilePicture"`
}

type tweet struct {
	Type          string      `json:"type"`
	ID            string      `json:"id"`
	Text          string      `json:"text"`
	URL           string      `json:"url"`
	Author        tweetAuthor `json:"author"`
	CreatedAt     string      `json:"createdAt"`
	LikeCount     int         `json:"likeCount"`
	RetweetCount  int         `json:"retweetCount"`
	ReplyCount    int         `json:"replyCount"`
	QuoteCount    int         `json:"quoteCount"`
	ViewCount     int         `json:"viewCount"`
	BookmarkCount int         `json:"bookmarkCount"`
	Lang          string      `json:"lang"`
	IsReply       bool        `json:"isReply"`
	QuotedTweet   *struct {
		Text string `json:"text"`
	} `json:"quoted_tweet"`
}

type twitterProfile struct {
	Description string `json:"description"`
	Location    string `json:"location"`
	Followers   int    `json:"followers"`
}

// twitterClient is the minimal twitterapi.io surface both parsers share
type twitterClient struct {
	deps    *Deps
	baseURL string
}

func newTwitterClient(deps *Deps) *twitterClient {
	return &twitterClient{deps: deps, baseURL: twitterAPIBase}
}

func (c *twitterClient) configured() bool {
	return c.deps.Config.Twitter.APIKey != ""
}

func (c *twitterClient) options(params map[string]string) httpclient.Options {
	return httpclient.Options{
		Headers: map[string]string{
			"x-api-key": c.deps.Config.Twitter.APIKey,
			"Accept":    "application/json",
		},
		Params: params,
	}
}

func (c *twitterClient) userTweets(ctx context.Context, username string) ([]tweet, error) {
	var resp struct {
		Status string `json:"status"`
		Msg    string `json:"msg"`
		Data   struct {
			Tweets []tweet `json:"tweets"`
		} `json:"data"`
	}
	url := c.baseURL + "/user/last_tweets"
	if err := c.deps.HTTP.FetchJSON(ctx, url, c.options(map[string]string{"userName": username}), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("twitter API error for %s: %s", username, resp.Msg)
	}
	return onlyTweets(resp.Data.Tweets), nil
}

func (c *twitterClient) searchTweets(ctx context.Context, query, queryType string) ([]tweet, error) {
	var resp struct {
		Tweets []tweet `json:"tweets"`
	}
	url := c.baseURL + "/tweet/advanced_search"
	params := map[string]string{"query": query, "queryType": queryType}
	if err := c.deps.HTTP.FetchJSON(ctx, url, c.options(params), &resp); err != nil {
		return nil, err
	}
	return onlyTweets(resp.Tweets), nil
}

func (c *twitterClient) userInfo(ctx context.Context, username string) (*twitterProfile, error) {
	var resp struct {
		Status string         `json:"status"`
		Data   twitterProfile `json:"data"`
	}
	url := c.baseURL + "/user/info"
	if err := c.deps.HTTP.FetchJSON(ctx, url, c.options(map[string]string{"userName": username}), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("twitter API error for %s", username)
	}
	return &resp.Data, nil
}

// retweets come back with type "retweet"; everything else non-tweet is noise
func onlyTweets(in []tweet) []tweet {
	out := in[:0:0]
	for _, t := range in {
		if t.Type == "tweet" {
			out = append(out, t)
		}
	}
	return out
}

// TwitterSearchParser monitors tweets matching an advanced-search query
type TwitterSearchParser struct {
	src    *models.SourceDefinition
	deps   *Deps
	client *twitterClient
}

// NewTwitterSearchParser builds the twitter_search parser
func NewTwitterSearchParser(src *models.SourceDefinition, deps *Deps) *TwitterSearchParser {
	return &TwitterSearchParser{src: src, deps: deps, client: newTwitterClient(deps)}
}

// WithBaseURL overrides the API endpoint (tests)
func (p *TwitterSearchParser) WithBaseURL(base string) *TwitterSearchParser {
	p.client.baseURL = base
	return p
}

// Parse implements Parser
func (p *TwitterSearchParser) Parse(ctx context.Context) ([]models.CrawledItem, int, error) {
	if !p.client.configured() {
		return nil, 0, ErrTwitterNotConfigured
	}
	if p.src.TwitterQuery == "" {
		p.deps.Logger.Warn().Str("source_id", p.src.ID).Msg("No twitter_query configured")
		return nil, 0, nil
	}

	queryType := p.src.TwitterQueryType
	if queryType == "" {
		queryType = defaultQueryType
	}
	limit := p.src.MaxResults
	if limit <= 0 {
		limit = defaultSearchTweets
	}

	tweets, err := p.client.searchTweets(ctx, p.src.TwitterQuery, queryType)
	if err != nil {
		return nil, 0, fmt.Errorf("twitter search failed: %w", err)
	}

	var items []models.CrawledItem
	for i, t := range tweets {
		if i >= limit {
			break
		}
		if t.LikeCount < p.src.MinLikes {
			continue
		}
		item := tweetToItem(p.src, t)
		item.Extra["search_query"] = p.src.TwitterQuery
		items = append(items, item)
	}
	return items, 0, nil
}

// TwitterKOLParser collects recent original tweets from a curated list of
// accounts, sorted by engagement.
type TwitterKOLParser struct {
	src    *models.SourceDefinition
	deps   *Deps
	client *twitterClient
}

// NewTwitterKOLParser builds the twitter_kol parser
func NewTwitterKOLParser(src *models.SourceDefinition, deps *Deps) *TwitterKOLParser {
	return &TwitterKOLParser{src: src, deps: deps, client: newTwitterClient(deps)}
}

// WithBaseURL overrides the API endpoint (tests)
func (p *TwitterKOLParser) WithBaseURL(base string) *TwitterKOLParser {
	p.client.baseURL = base
	return p
}

// Parse implements Parser
func (p *TwitterKOLParser) Parse(ctx context.Context) ([]models.CrawledItem, int, error) {
	if !p.client.configured() {
		return nil, 0, ErrTwitterNotConfigured
	}
	if len(p.src.TwitterAccounts) == 0 {
		p.deps.Logger.Warn().Str("source_id", p.src.ID).Msg("No twitter_accounts configured")
		return nil, 0, nil
	}

	maxPer := p.src.MaxTweetsPerAccount
	if maxPer <= 0 {
		maxPer = defaultTweetsPerAccount
	}
	fetchProfiles := p.src.FetchProfiles == nil || *p.src.FetchProfiles

	var (
		items      []models.CrawledItem
		itemErrors int
	)
	for _, username := range p.src.TwitterAccounts {
		tweets, err := p.client.userTweets(ctx, username)
		if err != nil {
			itemErrors++
			p.deps.Logger.Warn().
				Str("source_id", p.src.ID).
				Str("username", username).
				Err(err).
				Msg("KOL tweet fetch failed")
			continue
		}

		var profile *twitterProfile
		if fetchProfiles {
			// Profile enrichment is optional metadata
			profile, _ = p.client.userInfo(ctx, username)
		}

		count := 0
		for _, t := range tweets {
			if count >= maxPer {
				break
			}
			if t.IsReply || t.LikeCount < p.src.MinLikes {
				continue
			}
			count++

			item := tweetToItem(p.src, t)
			if profile != nil {
				item.Extra["author_bio"] = profile.Description
				item.Extra["author_location"] = profile.Location
			}
			if t.QuotedTweet != nil && t.QuotedTweet.Text != "" {
				item.Extra["quoted_text"] = truncateRunes(t.QuotedTweet.Text, quotedTextLimit)
			}
			if t.Lang != "" {
				item.Tags = append(item.Tags, "lang:"+t.Lang)
			}
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Extra["like_count"].(int) > items[j].Extra["like_count"].(int)
	})
	return items, itemErrors, nil
}

// tweetToItem maps the normalized tweet onto the shared item shape. Titles
// are the first 120 runes of the text.
func tweetToItem(src *models.SourceDefinition, t tweet) models.CrawledItem {
	title := truncateRunes(t.Text, tweetTitleLimit)

	item := newItem(src, title, t.URL)
	item.Author = fmt.Sprintf("%s (@%s)", t.Author.Name, t.Author.UserName)
	item.Content = t.Text
	if t.Text != "" {
		item.ContentHash = common.ContentHash(t.Text)
	}
	if parsed, err := time.Parse(tweetTimeLayout, t.CreatedAt); err == nil {
		item.PublishedAt = extractor.FormatDate(parsed)
	}
	item.Tags = append(item.Tags, "@"+t.Author.UserName)
	item.Extra = map[string]any{
		"tweet_id":         t.ID,
		"like_count":       t.LikeCount,
		"retweet_count":    t.RetweetCount,
		"reply_count":      t.ReplyCount,
		"view_count":       t.ViewCount,
		"bookmark_count":   t.BookmarkCount,
		"author_username":  t.Author.UserName,
		"author_followers": t.Author.Followers,
		"lang":             t.Lang,
	}
	return item
}
