package crawler

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
	"github.com/ternarybob/argus/internal/fetchers"
	"github.com/ternarybob/argus/internal/httpclient"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

func newTestRunner(t *testing.T) (*Runner, *storage.Storage) {
	t.Helper()
	logger := common.GetLogger()
	store := storage.New(t.TempDir(), logger)
	deps := &fetchers.Deps{
		HTTP: httpclient.New(&common.CrawlerConfig{
			MaxConcurrentPerDomain: 2,
			RequestTimeout:         5 * time.Second,
			MaxRetries:             1,
			MaxBodySize:            1 << 20,
		}),
		Snapshots: store.Snapshots,
		Config:    common.NewDefaultConfig(),
		Logger:    logger,
	}
	return NewRunner(deps, store, logger), store
}

func listSource(serverURL string) *models.SourceDefinition {
	return &models.SourceDefinition{
		ID:        "miit_news",
		Name:      "工信部动态",
		Dimension: models.DimensionNationalPolicy,
		URL:       serverURL + "/list",
		BaseURL:   serverURL,
		Strategy:  models.StrategyStatic,
		Enabled:   true,
		ListSelectors: &models.ListSelectors{
			ListItem: "ul li",
			Title:    "a",
			Link:     "a",
		},
	}
}

func TestRunPersistsArtifactLogAndState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul>
<li><a href="/a1.html">人工智能白皮书发布</a></li>
<li><a href="/a2.html">算力网络建设进展</a></li>
</ul></body></html>`)
	}))
	defer server.Close()

	runner, store := newTestRunner(t)
	src := listSource(server.URL)

	result := runner.Run(context.Background(), src)
	assert.Equal(t, models.CrawlStatusSuccess, result.Status)
	assert.Equal(t, 2, result.ItemsTotal)
	assert.Equal(t, 2, result.ItemsNew)
	assert.Positive(t, result.DurationSeconds)

	artifact, err := store.Artifacts.Load(src.Dimension, src.Group, src.ID)
	require.NoError(t, err)
	require.NotNil(t, artifact)
	assert.Equal(t, 2, artifact.ItemCount)
	assert.True(t, artifact.Items[0].IsNew)

	logs := store.RunLogs.List(src.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CrawlStatusSuccess, logs[0].Status)

	state := store.State.Get(src.ID)
	assert.Zero(t, state.ConsecutiveFailures)
	require.NotNil(t, state.LastSuccessAt)
}

func TestRunSecondPassMarksNothingNew(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul><li><a href="/a1.html">一条新闻</a></li></ul></body></html>`)
	}))
	defer server.Close()

	runner, _ := newTestRunner(t)
	src := listSource(server.URL)

	first := runner.Run(context.Background(), src)
	assert.Equal(t, 1, first.ItemsNew)

	second := runner.Run(context.Background(), src)
	assert.Equal(t, models.CrawlStatusSuccess, second.Status)
	assert.Equal(t, 1, second.ItemsTotal)
	assert.Zero(t, second.ItemsNew)
}

func TestRunFailureGrowsConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	runner, store := newTestRunner(t)
	src := listSource(server.URL)

	for i := 0; i < 3; i++ {
		result := runner.Run(context.Background(), src)
		assert.Equal(t, models.CrawlStatusFailed, result.Status)
		assert.NotEmpty(t, result.ErrorMessage)
	}

	state := store.State.Get(src.ID)
	assert.Equal(t, 3, state.ConsecutiveFailures)
	assert.Nil(t, state.LastSuccessAt)
	assert.Len(t, store.RunLogs.List(src.ID), 3)
}

func TestRunUnknownStrategyFails(t *testing.T) {
	runner, _ := newTestRunner(t)
	src := &models.SourceDefinition{ID: "broken", Name: "broken", Strategy: "telegraph"}

	result := runner.Run(context.Background(), src)
	assert.Equal(t, models.CrawlStatusFailed, result.Status)
	assert.Contains(t, result.ErrorMessage, "telegraph")
}

func TestRunSelectorMissIsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div>redesigned</div></body></html>`)
	}))
	defer server.Close()

	runner, _ := newTestRunner(t)
	src := listSource(server.URL)
	src.ListSelectors = &models.ListSelectors{ListItem: "ul.news li"}

	result := runner.Run(context.Background(), src)
	assert.Equal(t, models.CrawlStatusFailed, result.Status)
}
