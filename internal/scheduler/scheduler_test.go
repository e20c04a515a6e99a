package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/crawler"
	"github.com/ternarybob/argus/internal/fetchers"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

const policyCatalog = `dimension: national_policy
default_keyword_filter: ["人工智能", "算力"]
sources:
  - id: most_news
    name: 科技部新闻
    url: https://example.gov/news/
    fetch_strategy: static
    schedule: 2h
    enabled: true
    list_selectors:
      list_item: "ul.news li"
  - id: miit_rss
    name: 工信部订阅
    url: https://example.gov/rss.xml
    fetch_strategy: rss
    enabled: true
    keyword_filter: ["大模型"]
`

const mixedCatalog = `dimension: twitter
sources:
  - id: twitter_kol_ai
    name: AI KOL
    dimension: technology
    parser_kind: twitter_kol
    twitter_accounts: [ylecun]
    enabled: false
`

func writeCatalogs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "national_policy.yaml"), []byte(policyCatalog), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "twitter.yaml"), []byte(mixedCatalog), 0o644))
	return dir
}

func TestLoadCatalogs(t *testing.T) {
	sources, err := LoadCatalogs(writeCatalogs(t))
	require.NoError(t, err)
	require.Len(t, sources, 3)

	byID := map[string]models.SourceDefinition{}
	for _, src := range sources {
		byID[src.ID] = src
	}

	most := byID["most_news"]
	assert.Equal(t, models.DimensionNationalPolicy, most.Dimension)
	assert.Equal(t, []string{"人工智能", "算力"}, most.KeywordFilter)
	assert.Equal(t, models.Schedule2H, most.Schedule)

	// Explicit keyword filter is not overwritten by the catalog default
	assert.Equal(t, []string{"大模型"}, byID["miit_rss"].KeywordFilter)
	// Missing schedule falls back to daily
	assert.Equal(t, models.ScheduleDaily, byID["miit_rss"].Schedule)
	// Per-source dimension wins over the file dimension
	assert.Equal(t, models.DimensionTechnology, byID["twitter_kol_ai"].Dimension)
}

func TestLoadCatalogsRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	dupe := "dimension: technology\nsources:\n  - {id: x, name: X, url: https://a.example/, fetch_strategy: rss, enabled: true}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(dupe), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(dupe), 0o644))

	_, err := LoadCatalogs(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source id")
}

func TestLoadCatalogsRejectsUnknownDimension(t *testing.T) {
	dir := t.TempDir()
	bad := "dimension: astrology\nsources:\n  - {id: x, name: X, url: https://a.example/, fetch_strategy: rss, enabled: true}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(bad), 0o644))

	_, err := LoadCatalogs(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dimension")
}

func TestCronSpecMapping(t *testing.T) {
	assert.Equal(t, "@every 2h", cronSpec(models.Schedule2H))
	assert.Equal(t, "@every 4h", cronSpec(models.Schedule4H))
	assert.Equal(t, "0 6 * * *", cronSpec(models.ScheduleDaily))
	assert.Equal(t, "0 3 * * 1", cronSpec(models.ScheduleWeekly))
	assert.Equal(t, "0 2 1 * *", cronSpec(models.ScheduleMonthly))
	assert.Equal(t, "0 6 * * *", cronSpec(""))
}

func TestCronEvaluatesInUTC(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	assert.Equal(t, time.UTC, s.cron.Location())
}

type stubPipeline struct{ runs atomic.Int32 }

func (p *stubPipeline) Run(ctx context.Context) *models.PipelineResult {
	p.runs.Add(1)
	return &models.PipelineResult{RunID: "test", Status: models.PipelineStatusSuccess}
}

func newTestScheduler(t *testing.T, sources []models.SourceDefinition) (*Scheduler, *storage.Storage, *stubPipeline) {
	t.Helper()
	logger := common.GetLogger()
	store := storage.New(t.TempDir(), logger)

	cfg := common.NewDefaultConfig()
	cfg.Scheduler.JitterMax = 0

	deps := &fetchers.Deps{
		HTTP: httpclient.New(&common.CrawlerConfig{
			MaxConcurrentPerDomain: 2,
			RequestTimeout:         5 * time.Second,
			MaxRetries:             1,
			MaxBodySize:            1 << 20,
		}),
		Snapshots: store.Snapshots,
		Config:    cfg,
		Logger:    logger,
	}
	runner := crawler.NewRunner(deps, store, logger)
	pipeline := &stubPipeline{}
	return New(cfg, sources, runner, store, nil, pipeline, logger), store, pipeline
}

func slowSource(serverURL string) models.SourceDefinition {
	return models.SourceDefinition{
		ID:        "slow_feed",
		Name:      "Slow Feed",
		Dimension: models.DimensionTechnology,
		URL:       serverURL,
		Strategy:  models.StrategyRSS,
		Schedule:  models.ScheduleDaily,
		Enabled:   true,
	}
}

func TestTriggerRunsSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>AI 新闻</title><link>https://example.com/a</link></item></channel></rss>`)
	}))
	defer server.Close()

	sched, store, _ := newTestScheduler(t, []models.SourceDefinition{slowSource(server.URL)})
	defer sched.Stop()

	require.NoError(t, sched.Trigger("slow_feed"))
	require.Eventually(t, func() bool {
		return len(store.RunLogs.List("slow_feed")) == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.ErrorIs(t, sched.Trigger("nope"), ErrUnknownSource)
}

func TestTriggerSingleFlight(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`)
	}))
	defer server.Close()

	sched, store, _ := newTestScheduler(t, []models.SourceDefinition{slowSource(server.URL)})

	require.NoError(t, sched.Trigger("slow_feed"))
	// Wait until the first crawl is actually in flight
	require.Eventually(t, func() bool {
		sched.mu.Lock()
		defer sched.mu.Unlock()
		return sched.inFlight["slow_feed"]
	}, 5*time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, sched.Trigger("slow_feed"), ErrAlreadyRunning)

	close(release)
	require.Eventually(t, func() bool {
		return len(store.RunLogs.List("slow_feed")) == 1
	}, 5*time.Second, 20*time.Millisecond)
	sched.Stop()
}

func TestEnabledOverrideWins(t *testing.T) {
	sched, store, _ := newTestScheduler(t, []models.SourceDefinition{
		{ID: "s1", Name: "S1", URL: "https://a.example/", Strategy: models.StrategyRSS, Enabled: true},
	})
	defer sched.Stop()

	assert.True(t, sched.Enabled("s1"))

	off := false
	require.NoError(t, store.State.SetEnabledOverride("s1", &off))
	assert.False(t, sched.Enabled("s1"))

	require.NoError(t, store.State.SetEnabledOverride("s1", nil))
	assert.True(t, sched.Enabled("s1"))
}

func TestTriggerPipeline(t *testing.T) {
	sched, _, pipeline := newTestScheduler(t, nil)
	defer sched.Stop()

	require.NoError(t, sched.TriggerPipeline())
	require.Eventually(t, func() bool {
		return pipeline.runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
