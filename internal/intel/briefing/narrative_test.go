package briefing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
)

func TestSegmentJSONRoundTrip(t *testing.T) {
	para := Paragraph{
		Plain("今日重点："),
		MakeLink("重要政策发布", "policy-intel", "查看政策", "https://example.gov/1", "政策正文", "教育部"),
		Plain("。"),
	}

	data, err := json.Marshal(para)
	require.NoError(t, err)

	// Plain segments are bare strings, links are objects
	var raw []any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)
	_, isString := raw[0].(string)
	assert.True(t, isString)
	obj, isObject := raw[1].(map[string]any)
	require.True(t, isObject)
	assert.Equal(t, "policy-intel", obj["moduleId"])
	assert.Equal(t, "教育部", obj["sourceName"])

	var back Paragraph
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 3)
	assert.Equal(t, para[0].Text, back[0].Text)
	assert.Equal(t, para[1], back[1])
	assert.False(t, back[2].IsLink())
}

func TestMakeLinkTruncates(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = '长'
	}
	link := MakeLink(string(long), "tech-frontier", "", "https://x", string(long), "来源")
	assert.Len(t, []rune(link.Text), 60)
	assert.Len(t, []rune(link.ContentSnippet), 200)
}

func TestNormalizeInvalidModuleDegradesToPlain(t *testing.T) {
	n := &Narrative{Paragraphs: []Paragraph{{
		Plain("开头，"),
		{Text: "某链接", ModuleID: "bogus-module"},
	}}}
	out := n.Normalize(nil)
	require.Len(t, out.Paragraphs, 1)
	require.Len(t, out.Paragraphs[0], 2)
	assert.False(t, out.Paragraphs[0][1].IsLink())
	assert.Equal(t, "某链接", out.Paragraphs[0][1].Text)
}

func TestNormalizeHydratesFromIndex(t *testing.T) {
	index := map[string]ArticleMeta{
		"abcd1234": {URL: "https://example.gov/full", ContentSnippet: "正文片段", SourceName: "科技部"},
	}
	n := &Narrative{Paragraphs: []Paragraph{{
		{Text: "链接文本", ModuleID: "policy-intel", ArticleID: "#abcd1234"},
	}}}
	out := n.Normalize(index)

	seg := out.Paragraphs[0][0]
	assert.Equal(t, "https://example.gov/full", seg.URL)
	assert.Equal(t, "正文片段", seg.ContentSnippet)
	assert.Equal(t, "科技部", seg.SourceName)
	assert.Empty(t, seg.ArticleID, "lookup id is cleared from output")
}

func TestNormalizeDropsEmptySegmentsAndParagraphs(t *testing.T) {
	n := &Narrative{Paragraphs: []Paragraph{
		{Plain(""), {Text: "", ModuleID: "policy-intel"}},
	}}
	out := n.Normalize(nil)
	require.Len(t, out.Paragraphs, 1, "empty narrative gets the placeholder")
	assert.Equal(t, "今日暂无重要信息更新。", out.Paragraphs[0][0].Text)
}

func mkArticle(title, url string) intel.Article {
	return intel.Article{
		CrawledItem: models.CrawledItem{Title: title, URL: url, URLHash: "hash_" + title},
		SourceName:  "来源",
	}
}

func TestBuildFallbackShape(t *testing.T) {
	byDim := map[string][]intel.Article{
		models.DimensionNationalPolicy: {mkArticle("政策一", "u1"), mkArticle("政策二", "u2")},
		models.DimensionTechnology:     {mkArticle("技术一", "u3")},
		models.DimensionUniversities:   {mkArticle("高校一", "u4")},
	}
	n := BuildFallback(byDim)

	require.NotEmpty(t, n.Paragraphs)
	opening := n.Paragraphs[0]
	assert.Equal(t, "院长，今日共监测到4条信息更新，覆盖3个维度。", opening[0].Text)

	// Opening carries the first policy link
	var foundPolicyLink bool
	for _, seg := range opening {
		if seg.IsLink() && seg.ModuleID == "policy-intel" {
			foundPolicyLink = true
		}
	}
	assert.True(t, foundPolicyLink)

	assert.Contains(t, n.Summary, "4条信息")
	assert.Contains(t, n.Summary, "2条政策")
	assert.Contains(t, n.Summary, "1条科技动态")
}

func TestBuildFallbackEmpty(t *testing.T) {
	n := BuildFallback(map[string][]intel.Article{})
	require.Len(t, n.Paragraphs, 1)
	assert.Equal(t, "院长，今日共监测到0条信息更新，覆盖0个维度。", n.Paragraphs[0][0].Text)
}

func TestPrepareNarrativeInputIndex(t *testing.T) {
	a := mkArticle("一篇技术文章", "https://example.com/t")
	a.URLHash = "0123456789abcdef"
	a.Content = "正文内容"
	byDim := map[string][]intel.Article{
		models.DimensionTechnology: {a},
	}

	text, index := PrepareNarrativeInput(byDim)
	assert.Contains(t, text, "一篇技术文章")
	assert.Contains(t, text, "#01234567", "articles are referenced by 8-char hash prefix")

	meta, ok := index["01234567"]
	require.True(t, ok)
	assert.Equal(t, "https://example.com/t", meta.URL)
	assert.Equal(t, "来源", meta.SourceName)
}
