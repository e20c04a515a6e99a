package universityeco

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
)

func article(title, content, sourceName string) *intel.Article {
	return &intel.Article{
		CrawledItem: models.CrawledItem{Title: title, Content: content},
		SourceName:  sourceName,
	}
}

func TestClassifyPaperWithHighInfluence(t *testing.T) {
	a := article(
		"清华团队论文被NeurIPS录用",
		"该研究成果发表于顶会NeurIPS，是具身智能方向的重要进展。",
		"清华AIR新闻")

	c := ClassifyArticle(a)
	require.NotNil(t, c)
	assert.Equal(t, TypePaper, c.Type)
	assert.Equal(t, "清华大学", c.Institution)
	assert.Equal(t, "具身智能", c.Field)
	assert.NotEmpty(t, c.AIAnalysis)
}

func TestClassifyAward(t *testing.T) {
	a := article(
		"实验室成果荣获国家科技进步奖一等奖",
		"该成果获得国家级表彰。",
		"北大新闻网")

	c := ClassifyArticle(a)
	require.NotNil(t, c)
	assert.Equal(t, TypeAward, c.Type)
	assert.Equal(t, "高", c.Influence)
	assert.Equal(t, "北京大学", c.Institution)
}

func TestClassifyRejectsNegativeTitles(t *testing.T) {
	for _, title := range []string{
		"校领导走访慰问离退休教师",
		"学院召开2026年工作会议",
		"2026届毕业典礼隆重举行",
		"春节团拜会现场气氛热烈",
	} {
		assert.Nil(t, ClassifyArticle(article(title, "即使正文提到论文发表也不算。", "某大学")), title)
	}
}

func TestClassifyRejectsShortTitle(t *testing.T) {
	assert.Nil(t, ClassifyArticle(article("公告", "论文 发表 期刊 录用 顶会", "某大学")))
}

func TestClassifyRejectsLowScore(t *testing.T) {
	assert.Nil(t, ClassifyArticle(article("实验室日常工作简报", "例行内容，无研究信号。", "某大学")))
}

func TestClassifyRejectsAmbiguousScores(t *testing.T) {
	// Paper and patent signals both present but weak and close together
	a := article("关于论文与发明情况的介绍", "", "某大学")
	assert.Nil(t, ClassifyArticle(a))
}

func TestExtractInstitutionFallsBackToSourceName(t *testing.T) {
	a := article("某研究进展", "", "西湖实验室-官网")
	assert.Equal(t, "西湖实验室", extractInstitution(a))

	b := article("某研究进展", "", "")
	assert.Equal(t, "未知机构", extractInstitution(b))
}

func TestExtractFieldFromTags(t *testing.T) {
	a := article("t", "", "")
	a.Tags = []string{"Robotics"}
	assert.Equal(t, "机器人", extractField(a))

	b := article("纯数学研究取得进展", "代数几何新定理", "")
	assert.Equal(t, "综合", extractField(b))
}

func TestExtractAuthorsFallback(t *testing.T) {
	a := article("t", "", "智源研究院")
	a.Author = "王教授"
	assert.Equal(t, "王教授", extractAuthors(a))

	b := article("t", "没有作者信息的内容。", "智源研究院")
	assert.Equal(t, "智源研究院研究团队", extractAuthors(b))
}

func TestBuildDetailSkipsShortParagraphs(t *testing.T) {
	a := article("标题", "短行\n这是一个足够长的段落，描述了研究的主要贡献和实验结论，超过二十个字。", "")
	detail := buildDetail(a)
	assert.Contains(t, detail, "足够长的段落")

	b := article("只有标题", "短", "")
	assert.Equal(t, "只有标题", buildDetail(b))
}
