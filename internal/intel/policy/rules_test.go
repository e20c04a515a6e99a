package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
)

func article(title, content, sourceID string) *intel.Article {
	return &intel.Article{
		CrawledItem: models.CrawledItem{
			Title:    title,
			Content:  content,
			SourceID: sourceID,
		},
	}
}

func TestMatchScoreAddsSourceBonus(t *testing.T) {
	a := article("大模型产业扶持措施", "", "bjkw_policy")
	b := article("大模型产业扶持措施", "", "unknown_source")
	assert.Equal(t, matchScore(b)+15, matchScore(a))
}

func TestMatchScoreClampsAt100(t *testing.T) {
	a := article("人工智能研究院大模型算力中关村具身智能AI", "新型研发机构 智能计算 机器人 科技成果转化", "zgc_policy")
	assert.Equal(t, 100, matchScore(a))
}

func TestDetectOpportunityNeedsTitleKeywordAndEvidence(t *testing.T) {
	// Title keyword plus deadline in content
	a := article("关于开展专项申报的通知", "申报截止日期为2026年6月30日。", "")
	assert.True(t, detectOpportunity(a))

	// Title keyword plus funding amount
	b := article("课题征集公告", "每项资助不超过200万元。", "")
	assert.True(t, detectOpportunity(b))

	// Title keyword but no funding or deadline
	c := article("关于征集意见的通知", "欢迎社会各界提出意见。", "")
	assert.False(t, detectOpportunity(c))

	// Evidence but no title keyword
	d := article("工作动态", "截止日期为2026年6月30日。", "")
	assert.False(t, detectOpportunity(d))
}

func TestExtractTagsCapsAtSixHighWeightKeywords(t *testing.T) {
	a := article(
		"人工智能大模型算力中关村具身智能智能计算机器人科技人才",
		"科技成果转化 数据要素", "")
	tags := extractTags(a)
	require.NotEmpty(t, tags)
	assert.LessOrEqual(t, len(tags), 6)
	assert.Contains(t, tags, "人工智能")
	assert.NotContains(t, tags, "科技", "low weight keywords never become tags")
}

func TestAgencyResolution(t *testing.T) {
	a := article("t", "", "most_policy")
	assert.Equal(t, "科技部", agency(a))

	b := article("t", "", "some_new_source")
	b.SourceName = "某新来源"
	assert.Equal(t, "某新来源", agency(b))

	c := article("t", "", "some_new_source")
	assert.Equal(t, "未知", agency(c))
}

func TestEnrichByRulesProducesOpportunityFields(t *testing.T) {
	deadline := time.Now().UTC().AddDate(0, 0, 10).Format("2006年1月2日")
	a := article(
		"关于人工智能专项课题申报的通知",
		"单项资助不超过300万元，申报截止日期为"+deadline+"。",
		"most_policy")

	e := EnrichByRules(a)
	assert.True(t, e.IsOpportunity)
	assert.Equal(t, intel.ImportanceUrgent, e.Importance, "deadline within 14 days")
	assert.Equal(t, "不超过300万元", e.Funding)
	require.NotNil(t, e.DaysLeft)
	assert.InDelta(t, 10, *e.DaysLeft, 1)
	assert.Equal(t, "科技部", e.Agency)
	assert.Equal(t, intel.TierRules, e.Tier)
	assert.Equal(t, e.MatchScore, e.Relevance)
}

func TestEnrichByRulesSummaryFallback(t *testing.T) {
	e := EnrichByRules(article("", "正文", ""))
	assert.Equal(t, "无摘要", e.Summary)
}
