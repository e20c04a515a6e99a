package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

func seedStore(t *testing.T) *storage.Storage {
	t.Helper()
	store := storage.New(t.TempDir(), common.GetLogger())

	src := &models.SourceDefinition{
		ID:        "most_notice",
		Name:      "科技部通知",
		Dimension: models.DimensionNationalPolicy,
		URL:       "https://example.gov.cn/",
		Strategy:  models.StrategyStatic,
		Enabled:   true,
	}
	url := "https://example.gov.cn/art/2026/8/notice1.html"
	items := []models.CrawledItem{{
		Title:       "关于开展人工智能专项申报的通知",
		URL:         url,
		URLHash:     common.URLHash(url),
		SourceID:    src.ID,
		Dimension:   models.DimensionNationalPolicy,
		PublishedAt: "2026-08-20",
		Content:     "单个项目资助额度不超过500万元，申报截止日期为2026年9月30日。",
		ContentHash: "c1",
	}}
	_, err := store.Artifacts.Write(src, items, time.Now())
	require.NoError(t, err)
	return store
}

func TestProcessDryRunWritesNothing(t *testing.T) {
	store := seedStore(t)
	proc := New(store, common.GetLogger())

	summary, err := proc.Process(intel.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary["unique"])
	assert.Equal(t, 1, summary["new_processed"])
	assert.Equal(t, 1, summary["feed_items"])

	// No tracker, no enriched cache, no outputs
	_, err = os.Stat(store.ProcessedDir(Module))
	assert.True(t, os.IsNotExist(err))

	// Nothing was tracked, so a second dry run still counts the article as new
	summary, err = proc.Process(intel.Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary["new_processed"])
}

func TestProcessIncrementalAndForce(t *testing.T) {
	store := seedStore(t)
	proc := New(store, common.GetLogger())

	summary, err := proc.Process(intel.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary["new_processed"])
	assert.Equal(t, 1, summary["feed_items"])

	for _, name := range []string{"feed.json", "opportunities.json", "_processed_hashes.json"} {
		_, err := os.Stat(filepath.Join(store.ProcessedDir(Module), name))
		assert.NoError(t, err, name)
	}

	summary, err = proc.Process(intel.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary["new_processed"], "unchanged article skips")
	assert.Equal(t, 1, summary["total_enriched"])

	summary, err = proc.Process(intel.Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary["new_processed"], "force reprocesses")
}
