package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	return New(t.TempDir(), common.GetLogger())
}

func testSource() *models.SourceDefinition {
	return &models.SourceDefinition{
		ID:        "most_news",
		Name:      "科技部新闻",
		Dimension: models.DimensionNationalPolicy,
		URL:       "https://example.gov/news/",
		Strategy:  models.StrategyStatic,
		Enabled:   true,
	}
}

func item(title, url string) models.CrawledItem {
	return models.CrawledItem{
		Title:    title,
		URL:      url,
		URLHash:  common.URLHash(url),
		SourceID: "most_news",
	}
}

func TestArtifactWriteFirstRunAllNew(t *testing.T) {
	store := newTestStorage(t)
	src := testSource()

	items := []models.CrawledItem{
		item("one", "https://example.gov/news/1.html"),
		item("two", "https://example.gov/news/2.html"),
	}
	artifact, err := store.Artifacts.Write(src, items, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, artifact.ItemCount)
	assert.Equal(t, 2, artifact.NewItemCount)
	for _, it := range artifact.Items {
		assert.True(t, it.IsNew, "all items are new when no prior artifact exists")
	}
	assert.Nil(t, artifact.PreviousCrawledAt)
}

func TestArtifactWriteDeltaAgainstPrior(t *testing.T) {
	store := newTestStorage(t)
	src := testSource()

	first := []models.CrawledItem{
		item("one", "https://example.gov/news/1.html"),
	}
	_, err := store.Artifacts.Write(src, first, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	second := []models.CrawledItem{
		item("one", "https://example.gov/news/1.html"),
		item("two", "https://example.gov/news/2.html"),
	}
	artifact, err := store.Artifacts.Write(src, second, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, artifact.ItemCount)
	assert.Equal(t, 1, artifact.NewItemCount)
	assert.False(t, artifact.Items[0].IsNew)
	assert.True(t, artifact.Items[1].IsNew)
	require.NotNil(t, artifact.PreviousCrawledAt)
}

func TestArtifactPathOmitsEmptyGroup(t *testing.T) {
	store := newTestStorage(t)
	withGroup := store.Artifacts.ArtifactPath("technology", "ai_media", "src1")
	assert.Contains(t, withGroup, filepath.Join("technology", "ai_media", "src1"))

	noGroup := store.Artifacts.ArtifactPath("technology", "", "src1")
	assert.Contains(t, noGroup, filepath.Join("technology", "src1"))
}

func TestArtifactWriteEmptyRun(t *testing.T) {
	store := newTestStorage(t)
	artifact, err := store.Artifacts.Write(testSource(), nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, artifact.ItemCount)
	assert.Equal(t, 0, artifact.NewItemCount)
	assert.NotNil(t, artifact.Items, "empty items array is still written")
}

func TestStateStoreRecordRun(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.State.RecordRun("s1", models.CrawlStatusFailed, time.Now()))
	require.NoError(t, store.State.RecordRun("s1", models.CrawlStatusFailed, time.Now()))
	state := store.State.Get("s1")
	assert.Equal(t, 2, state.ConsecutiveFailures)
	assert.Nil(t, state.LastSuccessAt)

	require.NoError(t, store.State.RecordRun("s1", models.CrawlStatusSuccess, time.Now()))
	state = store.State.Get("s1")
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.NotNil(t, state.LastSuccessAt)
}

func TestStateStoreEnabledOverride(t *testing.T) {
	store := newTestStorage(t)
	disabled := false
	require.NoError(t, store.State.SetEnabledOverride("s1", &disabled))

	state := store.State.Get("s1")
	require.NotNil(t, state.EnabledOverride)
	assert.False(t, *state.EnabledOverride)

	require.NoError(t, store.State.SetEnabledOverride("s1", nil))
	assert.Nil(t, store.State.Get("s1").EnabledOverride)
}

func TestRunLogCapAt100(t *testing.T) {
	store := newTestStorage(t)

	for i := 0; i < 105; i++ {
		err := store.RunLogs.Append("s1", models.RunLog{
			Timestamp:  time.Now(),
			Status:     models.CrawlStatusSuccess,
			ItemsTotal: i,
		})
		require.NoError(t, err)
	}

	logs := store.RunLogs.List("s1")
	require.Len(t, logs, 100)
	assert.Equal(t, 5, logs[0].ItemsTotal, "oldest entries are trimmed")
	assert.Equal(t, 104, logs[99].ItemsTotal, "newest entry is last")
}

func TestSnapshotStoreKeepsContentOnlyOnLatest(t *testing.T) {
	store := newTestStorage(t)

	require.NoError(t, store.Snapshots.Append("s1", models.SnapshotRecord{
		CapturedAt:  time.Now().Add(-time.Hour),
		ContentHash: "aaa",
		ContentText: "A: Smith",
	}))
	require.NoError(t, store.Snapshots.Append("s1", models.SnapshotRecord{
		CapturedAt:  time.Now(),
		ContentHash: "bbb",
		ContentText: "A: Smith\nB: Jones",
	}))

	latest, err := store.Snapshots.Latest("s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "bbb", latest.ContentHash)
	assert.Equal(t, "A: Smith\nB: Jones", latest.ContentText)

	history := store.Snapshots.History("s1")
	require.Len(t, history, 2)
	assert.Empty(t, history[0].ContentText, "older snapshots drop content text")
}

func TestWriteJSONAtomicLeavesPriorFileOnMarshalFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, WriteJSONAtomic(path, map[string]string{"k": "v"}))

	// Channels cannot be marshaled; the old file must survive
	err := WriteJSONAtomic(path, map[string]any{"bad": make(chan int)})
	require.Error(t, err)

	var out map[string]string
	require.NoError(t, ReadJSON(path, &out))
	assert.Equal(t, "v", out["k"])
}

func TestArticlesFilterAndPaging(t *testing.T) {
	store := newTestStorage(t)
	src := testSource()

	var items []models.CrawledItem
	for i := 1; i <= 5; i++ {
		it := item(fmt.Sprintf("政策文件 %d", i), fmt.Sprintf("https://example.gov/news/%d.html", i))
		it.PublishedAt = fmt.Sprintf("2026-02-%02d", i)
		it.Dimension = models.DimensionNationalPolicy
		items = append(items, it)
	}
	_, err := store.Artifacts.Write(src, items, time.Now())
	require.NoError(t, err)

	got, total := store.Articles(ArticleFilter{Dimension: models.DimensionNationalPolicy, Limit: 2})
	assert.Equal(t, 5, total)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-02-05", got[0].PublishedAt, "newest first")

	got, total = store.Articles(ArticleFilter{Keyword: "政策", DateFrom: "2026-02-03"})
	assert.Equal(t, 3, total)
	assert.Len(t, got, 3)

	got, _ = store.Articles(ArticleFilter{SourceID: "other"})
	assert.Empty(t, got)
}

func TestArtifactEmptyCheck(t *testing.T) {
	store := newTestStorage(t)
	assert.True(t, store.Artifacts.Empty())

	_, err := store.Artifacts.Write(testSource(), nil, time.Now())
	require.NoError(t, err)
	assert.False(t, store.Artifacts.Empty())

	_ = os.RemoveAll(filepath.Join(store.DataDir, "raw"))
	assert.True(t, store.Artifacts.Empty())
}
