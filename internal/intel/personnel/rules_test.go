package personnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
)

func article(title, content string) *intel.Article {
	return &intel.Article{
		CrawledItem: models.CrawledItem{
			Title:       title,
			Content:     content,
			URLHash:     "abc123",
			PublishedAt: "2026-01-15",
		},
	}
}

func TestExtractChangesAppointment(t *testing.T) {
	a := article("国务院任免国家工作人员", "任命张三为教育部副部长。")
	changes := ExtractChanges(a)

	require.Len(t, changes, 1)
	assert.Equal(t, "张三", changes[0].Name)
	assert.Equal(t, ActionAppoint, changes[0].Action)
	assert.Equal(t, "教育部副部长", changes[0].Position)
	assert.Equal(t, "教育部", changes[0].Department)
	assert.Equal(t, "2026-01-15", changes[0].Date)
	assert.Equal(t, "abc123", changes[0].SourceArticleID)
}

func TestExtractChangesDismissal(t *testing.T) {
	a := article("人事任免", "免去孙其信的中国农业大学校长职务。")
	changes := ExtractChanges(a)

	require.Len(t, changes, 1)
	assert.Equal(t, "孙其信", changes[0].Name)
	assert.Equal(t, ActionDismiss, changes[0].Action)
	assert.Equal(t, "中国农业大学校长", changes[0].Position)
	assert.Equal(t, "中国农业大学", changes[0].Department)
}

func TestExtractChangesGenderAnnotationStripped(t *testing.T) {
	a := article("任免通知", "任命黄如（女）为国家发展和改革委员会副主任。")
	changes := ExtractChanges(a)

	require.Len(t, changes, 1)
	assert.Equal(t, "黄如", changes[0].Name)
	assert.Equal(t, "国家发展和改革委员会副主任", changes[0].Position)
	assert.Equal(t, "国家发改委", changes[0].Department)
}

func TestExtractChangesMultipleAndDeduped(t *testing.T) {
	content := "任命李四为科技部副部长。任命王五为北京市副市长。任命李四为科技部副部长。"
	changes := ExtractChanges(article("任免", content))

	require.Len(t, changes, 2)
	assert.Equal(t, "李四", changes[0].Name)
	assert.Equal(t, "科技部", changes[0].Department)
	assert.Equal(t, "王五", changes[1].Name)
	assert.Equal(t, "北京市政府", changes[1].Department)
}

func TestExtractChangesElection(t *testing.T) {
	a := article("学部选举结果公布", "王恩哥当选中国科学院副院长。")
	changes := ExtractChanges(a)

	require.Len(t, changes, 1)
	assert.Equal(t, "王恩哥", changes[0].Name)
	assert.Equal(t, ActionElect, changes[0].Action)
	assert.Equal(t, "中国科学院副院长", changes[0].Position)
}

func TestExtractChangesRetirement(t *testing.T) {
	a := article("人事变动", "邱勇卸任清华大学校长职务。")
	changes := ExtractChanges(a)

	require.Len(t, changes, 1)
	assert.Equal(t, "邱勇", changes[0].Name)
	assert.Equal(t, ActionRetire, changes[0].Action)
	assert.Equal(t, "清华大学校长", changes[0].Position)
	assert.Equal(t, "清华大学", changes[0].Department)
}

func TestExtractChangesNoMatches(t *testing.T) {
	assert.Empty(t, ExtractChanges(article("工作会议召开", "研究部署下一阶段工作。")))
}

func TestChangeIDStable(t *testing.T) {
	c := Change{Name: "张三", Action: ActionAppoint, Position: "教育部副部长"}
	id1 := ChangeID(c)
	c.Date = "2026-02-01"
	c.SourceArticleID = "other"
	id2 := ChangeID(c)

	assert.Equal(t, id1, id2, "identity excludes date and source article")
	assert.Len(t, id1, 16)

	c.Position = "科技部副部长"
	assert.NotEqual(t, id1, ChangeID(c))
}

func TestEnrichByRulesImportanceFromTitle(t *testing.T) {
	e := EnrichByRules(article("教育部人事任免通知", "任命张三为教育部副部长。"))
	assert.Equal(t, intel.ImportanceHigh, e.Importance)
	assert.Equal(t, 1, e.ChangeCount)
	assert.Equal(t, intel.TierRules, e.Tier)
	assert.Positive(t, e.MatchScore)
}
