package fetchers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()
	logger := common.GetLogger()
	return &Deps{
		HTTP: httpclient.New(&common.CrawlerConfig{
			MaxConcurrentPerDomain: 2,
			RequestTimeout:         5 * time.Second,
			MaxRetries:             1,
			MaxBodySize:            1 << 20,
		}),
		Snapshots: storage.NewSnapshotStore(t.TempDir(), logger),
		Config:    common.NewDefaultConfig(),
		Logger:    logger,
	}
}

const listPage = `<html><body><ul class="news">
<li><a href="/art/2026/8/detail1.html">人工智能产业动态</a><span class="date">2026-08-20</span></li>
<li><a href="/art/2026/8/detail2.html">量子计算进展</a><span class="date">2026-08-21</span></li>
</ul></body></html>`

const detailPage = `<html><body><div class="content">
<p>正文第一段。</p><img src="/img/chart.png"><a href="/files/plan.pdf">附件</a>
</div></body></html>`

func staticSource(serverURL string) *models.SourceDefinition {
	return &models.SourceDefinition{
		ID:        "most_news",
		Name:      "科技部新闻",
		Dimension: models.DimensionNationalPolicy,
		URL:       serverURL + "/news/",
		BaseURL:   serverURL,
		Strategy:  models.StrategyStatic,
		Enabled:   true,
		ListSelectors: &models.ListSelectors{
			ListItem:   "ul.news li",
			Title:      "a",
			Link:       "a",
			Date:       "span.date",
			DateFormat: "%Y-%m-%d",
		},
		DetailSelectors: &models.DetailSelectors{Content: "div.content"},
	}
}

func TestStaticFetcherListAndDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/news/" {
			fmt.Fprint(w, listPage)
			return
		}
		fmt.Fprint(w, detailPage)
	}))
	defer server.Close()

	fetcher := NewStaticFetcher(staticSource(server.URL), testDeps(t))
	result, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Zero(t, result.ItemErrors)

	first := result.Items[0]
	assert.Equal(t, "人工智能产业动态", first.Title)
	assert.Equal(t, server.URL+"/art/2026/8/detail1.html", first.URL)
	assert.Equal(t, "2026-08-20", first.PublishedAt)
	assert.Contains(t, first.Content, "正文第一段")
	assert.NotEmpty(t, first.ContentHash)
	assert.Equal(t, "most_news", first.SourceID)
}

func TestStaticFetcherSelectorMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>redesigned page</p></body></html>")
	}))
	defer server.Close()

	fetcher := NewStaticFetcher(staticSource(server.URL), testDeps(t))
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSelectorMiss)
}

func TestStaticFetcherDetailFailureIsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/news/" {
			fmt.Fprint(w, listPage)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewStaticFetcher(staticSource(server.URL), testDeps(t))
	result, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	// Items survive without content; the failures are counted
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.ItemErrors)
	assert.Empty(t, result.Items[0].Content)
}

const rssFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>AI News</title>
<item><title>New model released</title><link>https://example.com/a</link>
<pubDate>Mon, 24 Aug 2026 08:00:00 GMT</pubDate>
<description>&lt;p&gt;Details &lt;script&gt;x()&lt;/script&gt;inside&lt;/p&gt;</description></item>
<item><title>Second story</title><link>https://example.com/b</link></item>
</channel></rss>`

func TestRSSFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed)
	}))
	defer server.Close()

	src := &models.SourceDefinition{
		ID:       "ai_feed",
		Name:     "AI Feed",
		URL:      server.URL,
		Strategy: models.StrategyRSS,
		Enabled:  true,
	}
	result, err := NewRSSFetcher(src, testDeps(t)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "New model released", first.Title)
	assert.Equal(t, "2026-08-24", first.PublishedAt)
	assert.Contains(t, first.Content, "inside")
	assert.NotContains(t, first.ContentHTML, "script")
}

func TestRSSFetcherMaxEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssFeed)
	}))
	defer server.Close()

	src := &models.SourceDefinition{
		ID:         "ai_feed",
		Name:       "AI Feed",
		URL:        server.URL,
		Strategy:   models.StrategyRSS,
		MaxEntries: 1,
	}
	result, err := NewRSSFetcher(src, testDeps(t)).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func snapshotSource(serverURL string) *models.SourceDefinition {
	return &models.SourceDefinition{
		ID:             "gov_leaders",
		Name:           "领导名单",
		Dimension:      models.DimensionPersonnel,
		URL:            serverURL + "/leaders",
		Strategy:       models.StrategySnapshot,
		ContentArea:    "div.roster",
		IgnorePatterns: []string{`访问量[:：]\s*\d+`},
	}
}

func TestSnapshotFetcherFirstAndUnchanged(t *testing.T) {
	page := `<html><body><div class="roster"><p>张三 部长</p><p>访问量: 101</p></div></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	deps := testDeps(t)
	src := snapshotSource(server.URL)

	first, err := NewSnapshotFetcher(src, deps).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "[变更检测] 领导名单", first.Items[0].Title)
	assert.Contains(t, first.Items[0].Content, "初次快照")
	assert.Equal(t, true, first.Items[0].Extra["is_first_snapshot"])

	// Counter churn is ignored, so the second pass sees no change
	page = `<html><body><div class="roster"><p>张三 部长</p><p>访问量: 999</p></div></body></html>`
	second, err := NewSnapshotFetcher(src, deps).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Items)
}

func TestSnapshotFetcherChangeProducesDiff(t *testing.T) {
	page := `<html><body><div class="roster"><p>张三 部长</p></div></body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	deps := testDeps(t)
	src := snapshotSource(server.URL)

	_, err := NewSnapshotFetcher(src, deps).Fetch(context.Background())
	require.NoError(t, err)

	page = `<html><body><div class="roster"><p>李四 部长</p></div></body></html>`
	result, err := NewSnapshotFetcher(src, deps).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Contains(t, item.Content, "-张三 部长")
	assert.Contains(t, item.Content, "+李四 部长")
	assert.Contains(t, item.URL, "#snapshot-")
	assert.Equal(t, false, item.Extra["is_first_snapshot"])
}

const facultyPage1 = `<html><body><div class="faculty">
<div class="card"><h3 class="name">王五</h3><span class="title">教授</span>
<p class="bio">研究方向包括机器学习、计算机视觉。联系: wangwu@example.edu.cn</p>
<a href="/people/wangwu">主页</a></div>
<div class="card"><h3 class="name">赵六</h3><span class="title">副教授</span>
<a href="javascript:void(0)">主页</a></div>
</div><a class="next" href="/faculty?page=2">下一页</a></body></html>`

const facultyPage2 = `<html><body><div class="faculty">
<div class="card"><h3 class="name">钱七</h3><span class="title">讲师</span>
<a href="/people/qianqi">主页</a></div>
</div></body></html>`

func facultySource(serverURL string) *models.SourceDefinition {
	return &models.SourceDefinition{
		ID:        "cs_faculty",
		Name:      "计算机系师资",
		Dimension: models.DimensionUniversityFaculty,
		URL:       serverURL + "/faculty",
		BaseURL:   serverURL,
		Strategy:  models.StrategyFaculty,
		MaxPages:  5,
		FacultySelectors: &models.FacultySelectors{
			Card:     "div.card",
			Name:     "h3.name",
			Position: "span.title",
			Bio:      "p.bio",
			NextPage: "a.next",
		},
	}
}

func TestFacultyFetcherPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, facultyPage2)
			return
		}
		fmt.Fprint(w, facultyPage1)
	}))
	defer server.Close()

	result, err := NewFacultyFetcher(facultySource(server.URL), testDeps(t)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	first := result.Items[0]
	assert.Equal(t, "王五", first.Title)
	assert.Equal(t, server.URL+"/people/wangwu", first.URL)
	assert.Equal(t, "教授", first.Extra["position"])
	assert.Equal(t, "wangwu@example.edu.cn", first.Extra["email"])

	// javascript: href falls back to the page-fragment pseudo URL
	assert.Contains(t, result.Items[1].URL, "#faculty-赵六")
	assert.Equal(t, "钱七", result.Items[2].Title)
}

func TestFacultyFetcherSelectorMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>empty</p></body></html>")
	}))
	defer server.Close()

	_, err := NewFacultyFetcher(facultySource(server.URL), testDeps(t)).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSelectorMiss)
}

func TestBuildRegistry(t *testing.T) {
	deps := testDeps(t)

	static, err := Build(&models.SourceDefinition{ID: "a", Strategy: models.StrategyStatic}, deps)
	require.NoError(t, err)
	assert.IsType(t, &StaticFetcher{}, static)

	// parser_kind wins over fetch_strategy
	api, err := Build(&models.SourceDefinition{
		ID: "b", Strategy: models.StrategyStatic, ParserKind: "arxiv_api",
	}, deps)
	require.NoError(t, err)
	assert.IsType(t, parserAdapter{}, api)

	_, err = Build(&models.SourceDefinition{ID: "c", Strategy: "carrier_pigeon"}, deps)
	assert.ErrorIs(t, err, ErrUnknownFetcherKind)

	_, err = Build(&models.SourceDefinition{ID: "d", ParserKind: "nope"}, deps)
	assert.ErrorIs(t, err, ErrUnknownFetcherKind)
}

// fakeRenderer satisfies Renderer without a real browser and counts renders
type fakeRenderer struct {
	listHTML     string
	details      map[string]string
	renderCalls  int
	sessionCalls int
}

func (r *fakeRenderer) Render(ctx context.Context, url, waitCondition string, timeout time.Duration) (string, error) {
	r.renderCalls++
	return r.listHTML, nil
}

func (r *fakeRenderer) RenderWithDetails(ctx context.Context, url, waitCondition string, deriveDetails func(listHTML string) []string, detailTimeout time.Duration) (string, map[string]string, error) {
	r.sessionCalls++
	details := map[string]string{}
	for _, detailURL := range deriveDetails(r.listHTML) {
		if html, ok := r.details[detailURL]; ok {
			details[detailURL] = html
		}
	}
	return r.listHTML, details, nil
}

func TestDynamicFetcherRendersListOnce(t *testing.T) {
	base := "https://example.gov.cn"
	renderer := &fakeRenderer{
		listHTML: listPage,
		details: map[string]string{
			base + "/art/2026/8/detail1.html": detailPage,
			base + "/art/2026/8/detail2.html": detailPage,
		},
	}

	deps := testDeps(t)
	deps.Browser = renderer

	src := staticSource(base)
	src.Strategy = models.StrategyDynamic

	result, err := NewDynamicFetcher(src, deps).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Zero(t, result.ItemErrors)
	assert.Contains(t, result.Items[0].Content, "正文第一段")

	// One browser session covers the list and both details
	assert.Equal(t, 1, renderer.sessionCalls)
	assert.Zero(t, renderer.renderCalls)
}
