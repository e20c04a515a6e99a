// Package policy scores policy articles against the institute's interest
// profile and derives the policy feed and opportunity list. Rules enrichment
// always runs; high scorers are upgraded by the oracle when available.
package policy

import (
	"strings"

	"github.com/ternarybob/argus/internal/intel"
)

// Tier A keywords are highly specific to the AI research institute
var keywordsTierA = []intel.KeywordWeight{
	{Keyword: "人工智能研究院", Weight: 30},
	{Keyword: "新型研发机构", Weight: 25},
	{Keyword: "具身智能", Weight: 25},
	{Keyword: "大模型", Weight: 20},
	{Keyword: "人工智能", Weight: 20},
	{Keyword: "算力", Weight: 18},
	{Keyword: "智能计算", Weight: 20},
	{Keyword: "中关村", Weight: 18},
	{Keyword: "AI", Weight: 15},
	{Keyword: "海淀", Weight: 12},
}

// Tier B keywords cover directly related fields
var keywordsTierB = []intel.KeywordWeight{
	{Keyword: "科技成果转化", Weight: 12},
	{Keyword: "科技人才", Weight: 12},
	{Keyword: "机器人", Weight: 12},
	{Keyword: "卓越工程师", Weight: 10},
	{Keyword: "自然科学基金", Weight: 10},
	{Keyword: "数字经济", Weight: 10},
	{Keyword: "数据要素", Weight: 10},
	{Keyword: "智能制造", Weight: 10},
	{Keyword: "科研经费", Weight: 10},
	{Keyword: "人才引进", Weight: 10},
	{Keyword: "基础研究", Weight: 10},
	{Keyword: "科技", Weight: 8},
	{Keyword: "创新", Weight: 8},
	{Keyword: "人才", Weight: 8},
	{Keyword: "高新技术", Weight: 8},
}

// Tier C keywords are indirectly related
var keywordsTierC = []intel.KeywordWeight{
	{Keyword: "专项资金", Weight: 8},
	{Keyword: "教育", Weight: 5},
	{Keyword: "高校", Weight: 5},
	{Keyword: "科学", Weight: 5},
	{Keyword: "数字", Weight: 5},
	{Keyword: "信息化", Weight: 5},
	{Keyword: "知识产权", Weight: 5},
	{Keyword: "补贴", Weight: 5},
	{Keyword: "申报", Weight: 5},
}

var allKeywords = func() []intel.KeywordWeight {
	all := make([]intel.KeywordWeight, 0, len(keywordsTierA)+len(keywordsTierB)+len(keywordsTierC))
	all = append(all, keywordsTierA...)
	all = append(all, keywordsTierB...)
	all = append(all, keywordsTierC...)
	return all
}()

// Certain sources are inherently more relevant
var sourceScoreBonus = map[string]int{
	"bjkw_policy":  15,
	"zgc_policy":   15,
	"ncsti_policy": 10,
	"most_policy":  10,
	"ndrc_policy":  5,
	"nsfc_news":    8,
}

var opportunityTitleKeywords = []string{
	"征集", "申报", "通知", "补贴", "资助", "专项",
	"课题", "评审", "遴选", "招标", "入围",
}

var agencyMap = map[string]string{
	"gov_cn_zhengce":  "国务院",
	"ndrc_policy":     "国家发改委",
	"moe_policy":      "教育部",
	"most_policy":     "科技部",
	"miit_policy":     "工信部",
	"nsfc_news":       "国家自然科学基金委",
	"beijing_zhengce": "北京市政府",
	"bjkw_policy":     "北京市科委/中关村管委会",
	"bjjw_policy":     "北京市教委",
	"bjrsj_policy":    "北京市人社局",
	"zgc_policy":      "中关村管委会",
	"ncsti_policy":    "国际科创中心",
	"bjfgw_policy":    "北京市发改委",
	"bjhd_policy":     "海淀区政府",
	"beijing_ywdt":    "首都之窗",
	"bjrd_renshi":     "北京市人大常委会",
	"beijing_rsrm":    "北京市政府",
	"mohrss_rsrm":     "人社部",
	"moe_renshi":      "教育部",
	"moe_renshi_si":   "教育部人事司",
}

// Enrichment is the tier-1/tier-2 result attached to one article
type Enrichment struct {
	Summary       string   `json:"summary"`
	Importance    string   `json:"importance"`
	MatchScore    int      `json:"matchScore"`
	Relevance     int      `json:"relevance"`
	IsOpportunity bool     `json:"isOpportunity"`
	Funding       string   `json:"funding,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	DaysLeft      *int     `json:"daysLeft,omitempty"`
	Agency        string   `json:"agency"`
	Signals       []string `json:"signals"`
	AIInsight     string   `json:"aiInsight,omitempty"`
	Detail        string   `json:"detail,omitempty"`
	Leader        string   `json:"leader,omitempty"`
	Tags          []string `json:"tags"`
	Tier          string   `json:"enrichment_tier"`
}

// matchScore accumulates keyword weights over title plus a bounded content
// prefix, then adds the per-source bonus.
func matchScore(a *intel.Article) int {
	score := intel.KeywordScore(a.Text(3000), allKeywords)
	score += sourceScoreBonus[a.SourceID]
	return intel.ClampScore(score)
}

// detectOpportunity requires an opportunity keyword in the title AND a
// funding amount or deadline in the content.
func detectOpportunity(a *intel.Article) bool {
	hasKW := false
	for _, kw := range opportunityTitleKeywords {
		if strings.Contains(a.Title, kw) {
			hasKW = true
			break
		}
	}
	if !hasKW {
		return false
	}
	return intel.ExtractFunding(a.Content) != "" || intel.ExtractDeadline(a.Content) != ""
}

// extractTags picks the matched high-weight keywords, at most six
func extractTags(a *intel.Article) []string {
	text := strings.ToLower(a.Text(2000))
	var tags []string
	for _, kw := range append(append([]intel.KeywordWeight{}, keywordsTierA...), keywordsTierB...) {
		if kw.Weight < 10 {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw.Keyword)) && !contains(tags, kw.Keyword) {
			tags = append(tags, kw.Keyword)
		}
		if len(tags) == 6 {
			break
		}
	}
	return tags
}

func agency(a *intel.Article) string {
	if name, ok := agencyMap[a.SourceID]; ok {
		return name
	}
	if a.SourceName != "" {
		return a.SourceName
	}
	return "未知"
}

// EnrichByRules is the full tier-1 enrichment
func EnrichByRules(a *intel.Article) *Enrichment {
	text := a.Title + "\n" + a.Content

	score := matchScore(a)
	deadline := intel.ExtractDeadline(text)
	importance := intel.ComputeImportance(score, deadline, a.Title, nil)

	var daysLeft *int
	if days, ok := intel.ComputeDaysLeft(deadline); ok {
		daysLeft = &days
	}

	summary := "无摘要"
	if a.Title != "" {
		summary = intel.Truncate(a.Title, 80)
	}

	return &Enrichment{
		Summary:       summary,
		Importance:    importance,
		MatchScore:    score,
		Relevance:     score,
		IsOpportunity: detectOpportunity(a),
		Funding:       intel.ExtractFunding(text),
		Deadline:      deadline,
		DaysLeft:      daysLeft,
		Agency:        agency(a),
		Signals:       []string{},
		Leader:        intel.ExtractLeader(text),
		Tags:          extractTags(a),
		Tier:          intel.TierRules,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
