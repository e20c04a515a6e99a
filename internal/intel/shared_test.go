package intel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

func TestKeywordScoreAccumulatesWeights(t *testing.T) {
	keywords := []KeywordWeight{
		{Keyword: "人工智能", Weight: 30},
		{Keyword: "大模型", Weight: 20},
		{Keyword: "区块链", Weight: 10},
	}
	score := KeywordScore("关于促进人工智能大模型产业发展的通知", keywords)
	assert.Equal(t, 50, score)
}

func TestKeywordScoreCaseInsensitive(t *testing.T) {
	keywords := []KeywordWeight{{Keyword: "ai", Weight: 15}}
	assert.Equal(t, 15, KeywordScore("New AI benchmark released", keywords))
	assert.Equal(t, 0, KeywordScore("nothing relevant", keywords))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-5))
	assert.Equal(t, 100, ClampScore(130))
	assert.Equal(t, 55, ClampScore(55))
}

func TestComputeImportanceBands(t *testing.T) {
	assert.Equal(t, ImportanceHigh, ComputeImportance(80, "", "普通标题", nil))
	assert.Equal(t, ImportanceWatch, ComputeImportance(45, "", "普通标题", nil))
	assert.Equal(t, ImportanceNormal, ComputeImportance(10, "", "普通标题", nil))
}

func TestComputeImportanceTitleKeywordOverridesScore(t *testing.T) {
	got := ComputeImportance(0, "", "中关村新一轮先行先试政策", nil)
	assert.Equal(t, ImportanceHigh, got)
}

func TestComputeImportanceNearDeadlineIsUrgent(t *testing.T) {
	deadline := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	got := ComputeImportance(10, deadline, "普通标题", nil)
	assert.Equal(t, ImportanceUrgent, got)
}

func TestComputeImportancePastDeadlineNotUrgent(t *testing.T) {
	deadline := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
	got := ComputeImportance(10, deadline, "普通标题", nil)
	assert.Equal(t, ImportanceNormal, got)
}

func TestExtractFunding(t *testing.T) {
	assert.Equal(t, "不超过500万元", ExtractFunding("单个项目资助额度不超过500万元。"))
	assert.Equal(t, "2亿元", ExtractFunding("本次专项总规模2亿元。"))
	assert.Equal(t, "", ExtractFunding("没有提到资金。"))
}

func TestExtractDeadline(t *testing.T) {
	assert.Equal(t, "2026-03-15", ExtractDeadline("申报截止日期为2026年3月15日。"))
	assert.Equal(t, "2026-04-01", ExtractDeadline("请于2026年4月1日前提交材料。"))
	assert.Equal(t, "2026-05-20", ExtractDeadline("截止时间：2026-5-20"))
	assert.Equal(t, "", ExtractDeadline("随时可以申报。"))
}

func TestExtractLeader(t *testing.T) {
	assert.Equal(t, "张伟", ExtractLeader("据通报，部长张伟，已赴现场调研。"))
	assert.Equal(t, "李明", ExtractLeader("李明院长出席活动。"))
	assert.Equal(t, "", ExtractLeader("无领导出席。"))
}

func TestArticleDateFallbacks(t *testing.T) {
	a := Article{CrawledItem: models.CrawledItem{PublishedAt: "2026-01-02"}}
	assert.Equal(t, "2026-01-02", a.Date())

	a = Article{CrawledItem: models.CrawledItem{URL: "http://www.moe.gov.cn/news/t20260110_123.html"}}
	assert.Equal(t, "2026-01-10", a.Date())

	a = Article{CrawledItem: models.CrawledItem{URL: "https://example.gov/202602/t456.html"}}
	assert.Equal(t, "2026-02-01", a.Date())

	a = Article{CrawledItem: models.CrawledItem{URL: "https://example.com/x"}}
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), a.Date())
}

func TestArticleTextBoundsContent(t *testing.T) {
	a := Article{CrawledItem: models.CrawledItem{Title: "标题", Content: "很长的正文内容啊"}}
	text := a.Text(4)
	assert.Equal(t, "标题\n很长的正", text)
}

func TestCollectArticlesDedupsAcrossDimensions(t *testing.T) {
	store := storage.New(t.TempDir(), common.GetLogger())

	write := func(dim, id, url, date string) {
		src := &models.SourceDefinition{
			ID: id, Name: id, Dimension: dim, URL: "https://example.com/",
			Strategy: models.StrategyStatic, Enabled: true,
		}
		items := []models.CrawledItem{{
			Title: "item " + id, URL: url, URLHash: common.URLHash(url),
			SourceID: id, PublishedAt: date,
		}}
		_, err := store.Artifacts.Write(src, items, time.Now())
		require.NoError(t, err)
	}

	write(models.DimensionNationalPolicy, "a", "https://example.com/1", "2026-01-05")
	write(models.DimensionBeijingPolicy, "b", "https://example.com/2", "2026-01-08")
	// Same URL as source a, must not appear twice
	write(models.DimensionBeijingPolicy, "c", "https://example.com/1", "2026-01-01")

	articles := CollectArticles(store, models.DimensionNationalPolicy, models.DimensionBeijingPolicy)
	require.Len(t, articles, 2)
	assert.Equal(t, "2026-01-08", articles[0].Date(), "sorted newest first")
	assert.Equal(t, "2026-01-05", articles[1].Date())
}

func TestTrackerIncrementalSemantics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.json")

	tracker := LoadTracker(path)
	assert.True(t, tracker.ShouldProcess("h1", "c1", false), "unseen article processes")

	tracker.Mark("h1", "c1")
	assert.False(t, tracker.ShouldProcess("h1", "c1", false), "unchanged article skips")
	assert.True(t, tracker.ShouldProcess("h1", "c2", false), "changed content reprocesses")
	assert.True(t, tracker.ShouldProcess("h1", "c1", true), "force overrides")

	require.NoError(t, tracker.Save())

	reloaded := LoadTracker(path)
	assert.Equal(t, 1, reloaded.Len())
	assert.False(t, reloaded.ShouldProcess("h1", "c1", false))

	require.NoError(t, reloaded.Reset())
	assert.True(t, LoadTracker(path).ShouldProcess("h1", "c1", false))
}

func TestLoadTrackerToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	tracker := LoadTracker(path)
	assert.Equal(t, 0, tracker.Len())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "短", Truncate("短", 5))
	assert.Equal(t, "一二三", Truncate("一二三四五", 3))
}
