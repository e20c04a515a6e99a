// Package universityeco classifies university news into research outputs
// (papers, patents, awards) and builds the dashboard overview for the
// university dimension.
package universityeco

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/argus/internal/intel"
)

// MinResearchScore is the minimum type score to qualify as a research article
const MinResearchScore = 30

// Research output types
const (
	TypePaper  = "论文"
	TypePatent = "专利"
	TypeAward  = "获奖"
)

var keywordsPaper = []intel.KeywordWeight{
	{Keyword: "论文", Weight: 30}, {Keyword: "paper", Weight: 25}, {Keyword: "发表", Weight: 20}, {Keyword: "录用", Weight: 25},
	{Keyword: "期刊", Weight: 20}, {Keyword: "journal", Weight: 20}, {Keyword: "会议论文", Weight: 30},
	{Keyword: "science", Weight: 30}, {Keyword: "nature", Weight: 30}, {Keyword: "cell", Weight: 20},
	{Keyword: "icra", Weight: 20}, {Keyword: "cvpr", Weight: 20}, {Keyword: "neurips", Weight: 20}, {Keyword: "nips", Weight: 15},
	{Keyword: "aaai", Weight: 20}, {Keyword: "iclr", Weight: 20}, {Keyword: "icml", Weight: 20}, {Keyword: "acl", Weight: 15},
	{Keyword: "emnlp", Weight: 15}, {Keyword: "sigir", Weight: 15}, {Keyword: "kdd", Weight: 15}, {Keyword: "www", Weight: 10},
	{Keyword: "ieee", Weight: 15}, {Keyword: "acm", Weight: 15}, {Keyword: "arxiv", Weight: 15},
	{Keyword: "usenix", Weight: 15}, {Keyword: "security", Weight: 10},
	{Keyword: "研究成果", Weight: 20}, {Keyword: "学术", Weight: 15}, {Keyword: "学报", Weight: 15},
	{Keyword: "top会议", Weight: 20}, {Keyword: "顶会", Weight: 20}, {Keyword: "顶刊", Weight: 20},
	{Keyword: "一作", Weight: 15}, {Keyword: "通讯作者", Weight: 15},
}

var keywordsPatent = []intel.KeywordWeight{
	{Keyword: "专利", Weight: 40}, {Keyword: "patent", Weight: 35}, {Keyword: "发明", Weight: 25}, {Keyword: "授权", Weight: 20},
	{Keyword: "实用新型", Weight: 30}, {Keyword: "知识产权", Weight: 25}, {Keyword: "技术转让", Weight: 20},
	{Keyword: "成果转化", Weight: 20}, {Keyword: "产业化", Weight: 15}, {Keyword: "技术突破", Weight: 15},
}

var keywordsAward = []intel.KeywordWeight{
	{Keyword: "获奖", Weight: 35}, {Keyword: "荣获", Weight: 35}, {Keyword: "奖项", Weight: 30}, {Keyword: "颁奖", Weight: 25},
	{Keyword: "一等奖", Weight: 30}, {Keyword: "二等奖", Weight: 25}, {Keyword: "三等奖", Weight: 20},
	{Keyword: "特等奖", Weight: 35}, {Keyword: "金奖", Weight: 30}, {Keyword: "银奖", Weight: 20},
	{Keyword: "杰出", Weight: 20}, {Keyword: "表彰", Weight: 20}, {Keyword: "院士", Weight: 15},
	{Keyword: "国家奖", Weight: 30}, {Keyword: "自然科学奖", Weight: 30}, {Keyword: "技术发明奖", Weight: 30},
	{Keyword: "科技进步奖", Weight: 30}, {Keyword: "科学技术奖", Weight: 25},
	{Keyword: "最佳论文", Weight: 25}, {Keyword: "best paper", Weight: 25},
	{Keyword: "长江学者", Weight: 20}, {Keyword: "杰青", Weight: 20}, {Keyword: "优青", Weight: 15},
	{Keyword: "人才计划", Weight: 15}, {Keyword: "挑战赛", Weight: 15},
}

var keywordsHighInfluence = []intel.KeywordWeight{
	{Keyword: "science", Weight: 40}, {Keyword: "nature", Weight: 40}, {Keyword: "cell", Weight: 35},
	{Keyword: "院士", Weight: 20}, {Keyword: "国家级", Weight: 30}, {Keyword: "国家奖", Weight: 30},
	{Keyword: "重大突破", Weight: 30}, {Keyword: "世界首次", Weight: 30}, {Keyword: "全球首个", Weight: 30},
	{Keyword: "特等奖", Weight: 30}, {Keyword: "一等奖", Weight: 25},
	{Keyword: "neurips", Weight: 20}, {Keyword: "icml", Weight: 20}, {Keyword: "cvpr", Weight: 20},
	{Keyword: "长江学者", Weight: 20}, {Keyword: "杰青", Weight: 20},
}

var keywordsMedInfluence = []intel.KeywordWeight{
	{Keyword: "aaai", Weight: 15}, {Keyword: "iclr", Weight: 15}, {Keyword: "acl", Weight: 15}, {Keyword: "icra", Weight: 15},
	{Keyword: "ieee", Weight: 10}, {Keyword: "acm", Weight: 10},
	{Keyword: "省级", Weight: 10}, {Keyword: "教育部", Weight: 10}, {Keyword: "科技部", Weight: 10},
	{Keyword: "二等奖", Weight: 10}, {Keyword: "金奖", Weight: 10},
	{Keyword: "优青", Weight: 10}, {Keyword: "人才计划", Weight: 10},
}

// institutionPatterns is ordered; the first pattern found in source name or
// title wins.
var institutionPatterns = []struct{ pattern, name string }{
	{"清华", "清华大学"},
	{"北大", "北京大学"},
	{"北京大学", "北京大学"},
	{"复旦", "复旦大学"},
	{"交大", "上海交通大学"},
	{"上海交通", "上海交通大学"},
	{"浙大", "浙江大学"},
	{"浙江大学", "浙江大学"},
	{"中科大", "中国科学技术大学"},
	{"中国科学技术大学", "中国科学技术大学"},
	{"南大", "南京大学"},
	{"南京大学", "南京大学"},
	{"哈工大", "哈尔滨工业大学"},
	{"武大", "武汉大学"},
	{"武汉大学", "武汉大学"},
	{"山东大学", "山东大学"},
	{"中山大学", "中山大学"},
	{"华科", "华中科技大学"},
	{"华中科技", "华中科技大学"},
	{"同济", "同济大学"},
	{"天大", "天津大学"},
	{"天津大学", "天津大学"},
	{"西交", "西安交通大学"},
	{"西安交通", "西安交通大学"},
	{"北航", "北京航空航天大学"},
	{"北理", "北京理工大学"},
	{"人大", "中国人民大学"},
	{"AIR", "清华AIR"},
	{"智源", "智源研究院"},
	{"中科院", "中国科学院"},
	{"深圳", "深圳"},
	{"上海AI", "上海AI实验室"},
	{"商汤", "商汤科技"},
}

var tagToField = map[string]string{
	"ai":         "人工智能",
	"ml":         "机器学习",
	"nlp":        "自然语言处理",
	"cv":         "计算机视觉",
	"robotics":   "机器人",
	"security":   "网络安全",
	"quantum":    "量子计算",
	"biology":    "生物医学",
	"education":  "教育",
	"policy":     "政策",
	"institute":  "研究机构",
	"university": "高校",
}

var fieldKeywords = []struct{ keyword, field string }{
	{"大模型", "大模型"}, {"llm", "大模型"}, {"gpt", "大模型"},
	{"具身智能", "具身智能"}, {"embodied", "具身智能"},
	{"机器人", "机器人"}, {"robot", "机器人"},
	{"量子", "量子计算"}, {"quantum", "量子计算"},
	{"安全", "网络安全"}, {"security", "网络安全"},
	{"医学", "AI医学"}, {"医疗", "AI医学"}, {"drug", "AI制药"},
	{"自动驾驶", "自动驾驶"}, {"autonomous", "自动驾驶"},
	{"视觉", "计算机视觉"}, {"vision", "计算机视觉"},
	{"自然语言", "自然语言处理"}, {"nlp", "自然语言处理"},
	{"教育", "AI教育"},
	{"人工智能", "人工智能"}, {"ai", "人工智能"},
}

// negativeTitlePatterns mark non-research articles (visits, ceremonies,
// admissions and similar routine coverage).
var negativeTitlePatterns = []string{
	"看望慰问", "走访慰问", "走访调研", "调研座谈",
	"带队走访", "带队调研",
	"工作务虚会", "工作会议", "部署会", "推进会", "座谈会", "动员会",
	"新春", "春节", "团拜会", "联欢会", "拜年", "团圆饭",
	"对话", "访谈", "专访", "采访",
	"签订合作", "合作协议", "框架协议", "座谈交流",
	"开学典礼", "毕业典礼", "开幕式", "闭幕式",
	"就业", "招生", "招聘", "录取",
	"寒假工作", "暑假工作",
	"习近平", "重点任务",
}

var authorRe = regexp.MustCompile(
	`(?:作者|团队|课题组|实验室|教授|研究员|博士)[：:\s]*` +
		`([\x{4e00}-\x{9fa5}A-Za-z\s、,，]+?)[。；\n]`)

// Classification is the rules result for one research article
type Classification struct {
	Type        string `json:"type"`
	Influence   string `json:"influence"`
	Institution string `json:"institution"`
	Field       string `json:"field"`
	Authors     string `json:"authors"`
	Detail      string `json:"detail"`
	AIAnalysis  string `json:"aiAnalysis"`
	MatchScore  int    `json:"matchScore"`
}

// ClassifyArticle decides whether an article is a research output and, if
// so, its type and influence. Ambiguous low scores are rejected rather than
// guessed.
func ClassifyArticle(a *intel.Article) *Classification {
	title := strings.TrimSpace(a.Title)
	if len([]rune(title)) < 4 {
		return nil
	}
	for _, neg := range negativeTitlePatterns {
		if strings.Contains(title, neg) {
			return nil
		}
	}

	text := a.Text(3000)
	paperScore := intel.KeywordScore(text, keywordsPaper)
	patentScore := intel.KeywordScore(text, keywordsPatent)
	awardScore := intel.KeywordScore(text, keywordsAward)

	best, runnerUp := topTwo(paperScore, patentScore, awardScore)
	if best < MinResearchScore {
		return nil
	}
	if best < 40 && best-runnerUp < 10 {
		return nil
	}

	var rtype string
	switch {
	case paperScore >= patentScore && paperScore >= awardScore:
		rtype = TypePaper
	case patentScore >= awardScore:
		rtype = TypePatent
	default:
		rtype = TypeAward
	}

	highScore := intel.KeywordScore(text, keywordsHighInfluence)
	medScore := intel.KeywordScore(text, keywordsMedInfluence)
	influence := "低"
	switch {
	case highScore >= 25:
		influence = "高"
	case highScore >= 10 || medScore >= 20:
		influence = "中"
	}

	institution := extractInstitution(a)
	return &Classification{
		Type:        rtype,
		Influence:   influence,
		Institution: institution,
		Field:       extractField(a),
		Authors:     extractAuthors(a),
		Detail:      buildDetail(a),
		AIAnalysis:  buildAnalysis(rtype, influence, institution, title),
		MatchScore:  intel.ClampScore(best),
	}
}

func topTwo(scores ...int) (best, runnerUp int) {
	for _, s := range scores {
		if s > best {
			best, runnerUp = s, best
		} else if s > runnerUp {
			runnerUp = s
		}
	}
	return best, runnerUp
}

func extractInstitution(a *intel.Article) string {
	text := a.SourceName + " " + a.Title
	for _, entry := range institutionPatterns {
		if strings.Contains(text, entry.pattern) {
			return entry.name
		}
	}
	name := a.SourceName
	if i := strings.IndexAny(name, "-("); i >= 0 {
		name = name[:i]
	}
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "未知机构"
}

func extractField(a *intel.Article) string {
	for _, tag := range a.Tags {
		lower := strings.ToLower(tag)
		for key, field := range tagToField {
			if strings.Contains(lower, key) {
				return field
			}
		}
	}

	text := strings.ToLower(a.Title + " " + intel.Truncate(a.Content, 500))
	for _, entry := range fieldKeywords {
		if strings.Contains(text, entry.keyword) {
			return entry.field
		}
	}
	return "综合"
}

func extractAuthors(a *intel.Article) string {
	if author := strings.TrimSpace(a.Author); author != "" {
		return author
	}
	if m := authorRe.FindStringSubmatch(intel.Truncate(a.Content, 1000)); m != nil {
		return intel.Truncate(strings.TrimSpace(m[1]), 100)
	}
	return a.SourceName + "研究团队"
}

// buildDetail takes the first substantial paragraph of the content
func buildDetail(a *intel.Article) string {
	for _, p := range strings.Split(a.Content, "\n") {
		p = strings.TrimSpace(p)
		if len([]rune(p)) <= 20 {
			continue
		}
		snippet := intel.Truncate(p, 300)
		if len([]rune(p)) > 300 {
			snippet += "…"
		}
		return snippet
	}
	return a.Title
}

func buildAnalysis(rtype, influence, institution, title string) string {
	influenceLabel := map[string]string{"高": "高影响力", "中": "中等影响力", "低": "常规"}[influence]
	typeLabel := map[string]string{TypePaper: "学术论文", TypePatent: "专利成果", TypeAward: "获奖荣誉"}[rtype]
	return fmt.Sprintf("%s发布%s%s。「%s」值得关注，建议持续追踪该机构在相关领域的动态。",
		institution, influenceLabel, typeLabel, intel.Truncate(title, 40))
}
