// Package techfrontier classifies technology articles into a fixed set of
// frontier topics, computes weekly heat trends, and surfaces cooperation
// opportunities.
package techfrontier

import (
	"fmt"
	"time"

	"github.com/ternarybob/argus/internal/intel"
)

// TopicMatchThreshold is the minimum score to classify an article into a topic
const TopicMatchThreshold = 15

// OppMatchThreshold is the minimum score to flag an opportunity
const OppMatchThreshold = 20

// TopicConfig is the static definition of one tracked frontier topic
type TopicConfig struct {
	ID             string
	Topic          string
	Description    string
	Tags           []string
	OurStatus      string
	OurStatusLabel string
	GapLevel       string
	Keywords       []intel.KeywordWeight
}

// Topics is the closed set of tracked frontier directions
var Topics = []TopicConfig{
	{
		ID:             "embodied_ai",
		Topic:          "具身智能",
		Description:    "将AI与物理世界交互的关键技术方向，涵盖机器人控制、运动规划、导航等",
		Tags:           []string{"机器人", "运动控制", "仿真", "感知"},
		OurStatus:      "none",
		OurStatusLabel: "未布局",
		GapLevel:       "high",
		Keywords: []intel.KeywordWeight{
			{Keyword: "具身智能", Weight: 20}, {Keyword: "embodied intelligence", Weight: 18}, {Keyword: "embodied ai", Weight: 18},
			{Keyword: "humanoid robot", Weight: 15}, {Keyword: "人形机器人", Weight: 15}, {Keyword: "机器人控制", Weight: 12},
			{Keyword: "运动规划", Weight: 10}, {Keyword: "motion planning", Weight: 10}, {Keyword: "robotics", Weight: 8},
			{Keyword: "manipulation", Weight: 8}, {Keyword: "locomotion", Weight: 8}, {Keyword: "navigation", Weight: 6},
			{Keyword: "sim-to-real", Weight: 10}, {Keyword: "仿真到现实", Weight: 10}, {Keyword: "触觉感知", Weight: 8},
		},
	},
	{
		ID:             "multimodal",
		Topic:          "多模态大模型",
		Description:    "整合视觉、语音、文本等多种模态的大模型技术，是大模型发展的重要方向",
		Tags:           []string{"大模型", "视觉", "视频生成", "长上下文"},
		OurStatus:      "deployed",
		OurStatusLabel: "已布局",
		GapLevel:       "low",
		Keywords: []intel.KeywordWeight{
			{Keyword: "多模态", Weight: 18}, {Keyword: "multimodal", Weight: 18}, {Keyword: "视觉语言", Weight: 15},
			{Keyword: "vision-language", Weight: 15}, {Keyword: "视频生成", Weight: 15}, {Keyword: "video generation", Weight: 15},
			{Keyword: "图像生成", Weight: 12}, {Keyword: "image generation", Weight: 12}, {Keyword: "CLIP", Weight: 10},
			{Keyword: "Sora", Weight: 12}, {Keyword: "DALL-E", Weight: 10}, {Keyword: "Stable Diffusion", Weight: 8},
			{Keyword: "文生图", Weight: 12}, {Keyword: "文生视频", Weight: 12}, {Keyword: "text-to-image", Weight: 10},
			{Keyword: "text-to-video", Weight: 10}, {Keyword: "长上下文", Weight: 8}, {Keyword: "long context", Weight: 8},
		},
	},
	{
		ID:             "ai_agent",
		Topic:          "AI Agent",
		Description:    "自主完成复杂任务的智能代理系统，涵盖工具调用、多Agent协作、自主编程等",
		Tags:           []string{"AI编程", "Agent框架", "工具调用", "自主任务"},
		OurStatus:      "weak",
		OurStatusLabel: "基础薄弱",
		GapLevel:       "medium",
		Keywords: []intel.KeywordWeight{
			{Keyword: "AI Agent", Weight: 20}, {Keyword: "智能体", Weight: 15}, {Keyword: "agent", Weight: 10},
			{Keyword: "tool use", Weight: 12}, {Keyword: "工具调用", Weight: 12}, {Keyword: "function calling", Weight: 10},
			{Keyword: "多Agent", Weight: 15}, {Keyword: "multi-agent", Weight: 15}, {Keyword: "自主编程", Weight: 12},
			{Keyword: "agentic", Weight: 12}, {Keyword: "AutoGPT", Weight: 10}, {Keyword: "Devin", Weight: 10},
			{Keyword: "Copilot", Weight: 8}, {Keyword: "自主任务", Weight: 10}, {Keyword: "任务规划", Weight: 8},
			{Keyword: "ReAct", Weight: 10}, {Keyword: "chain of thought", Weight: 8}, {Keyword: "思维链", Weight: 8},
		},
	},
	{
		ID:             "ai_for_science",
		Topic:          "AI for Science",
		Description:    "利用AI加速科学发现的新范式，涵盖药物发现、蛋白质结构预测、分子模拟等",
		Tags:           []string{"科学计算", "药物发现", "蛋白质", "开源模型"},
		OurStatus:      "deployed",
		OurStatusLabel: "已布局",
		GapLevel:       "low",
		Keywords: []intel.KeywordWeight{
			{Keyword: "AI for Science", Weight: 20}, {Keyword: "ai4science", Weight: 18}, {Keyword: "科学计算", Weight: 15},
			{Keyword: "药物发现", Weight: 15}, {Keyword: "drug discovery", Weight: 15}, {Keyword: "蛋白质", Weight: 12},
			{Keyword: "protein", Weight: 10}, {Keyword: "AlphaFold", Weight: 15}, {Keyword: "分子模拟", Weight: 12},
			{Keyword: "molecular dynamics", Weight: 12}, {Keyword: "材料设计", Weight: 10}, {Keyword: "materials", Weight: 8},
			{Keyword: "气候模型", Weight: 8}, {Keyword: "genomics", Weight: 8}, {Keyword: "基因组", Weight: 8},
		},
	},
	{
		ID:             "edge_ai",
		Topic:          "端侧AI推理",
		Description:    "将AI推理从云端迁移到边缘设备，涉及模型压缩、专用芯片、高效推理等技术",
		Tags:           []string{"边缘计算", "模型压缩", "AI芯片", "推理优化"},
		OurStatus:      "none",
		OurStatusLabel: "未布局",
		GapLevel:       "high",
		Keywords: []intel.KeywordWeight{
			{Keyword: "端侧", Weight: 18}, {Keyword: "edge ai", Weight: 18}, {Keyword: "on-device", Weight: 15},
			{Keyword: "模型压缩", Weight: 15}, {Keyword: "model compression", Weight: 15}, {Keyword: "量化", Weight: 12},
			{Keyword: "quantization", Weight: 12}, {Keyword: "知识蒸馏", Weight: 12}, {Keyword: "distillation", Weight: 10},
			{Keyword: "NPU", Weight: 12}, {Keyword: "AI芯片", Weight: 15}, {Keyword: "ai chip", Weight: 15},
			{Keyword: "推理优化", Weight: 12}, {Keyword: "inference optimization", Weight: 12},
			{Keyword: "pruning", Weight: 8}, {Keyword: "剪枝", Weight: 8}, {Keyword: "TinyML", Weight: 10},
		},
	},
	{
		ID:             "llm_foundation",
		Topic:          "大语言模型",
		Description:    "基础语言模型的预训练、微调、推理等核心技术，包括Scaling Law、架构创新等",
		Tags:           []string{"预训练", "微调", "Scaling Law", "架构创新"},
		OurStatus:      "deployed",
		OurStatusLabel: "已布局",
		GapLevel:       "medium",
		Keywords: []intel.KeywordWeight{
			{Keyword: "大语言模型", Weight: 15}, {Keyword: "大模型", Weight: 10}, {Keyword: "LLM", Weight: 15},
			{Keyword: "GPT", Weight: 10}, {Keyword: "Claude", Weight: 10}, {Keyword: "Gemini", Weight: 10},
			{Keyword: "DeepSeek", Weight: 12}, {Keyword: "预训练", Weight: 12}, {Keyword: "pre-training", Weight: 12},
			{Keyword: "Scaling Law", Weight: 15}, {Keyword: "微调", Weight: 10}, {Keyword: "fine-tuning", Weight: 10},
			{Keyword: "RLHF", Weight: 12}, {Keyword: "instruction tuning", Weight: 10}, {Keyword: "指令微调", Weight: 10},
			{Keyword: "Transformer", Weight: 8}, {Keyword: "Mamba", Weight: 10}, {Keyword: "SSM", Weight: 8},
			{Keyword: "Llama", Weight: 10}, {Keyword: "Qwen", Weight: 10}, {Keyword: "foundation model", Weight: 12},
			{Keyword: "基础模型", Weight: 12}, {Keyword: "开源模型", Weight: 8},
		},
	},
	{
		ID:             "ai_safety",
		Topic:          "AI安全与治理",
		Description:    "AI系统的安全性、可控性与社会治理，涵盖对齐、可解释性、监管政策等",
		Tags:           []string{"对齐", "可解释性", "监管", "红队测试"},
		OurStatus:      "weak",
		OurStatusLabel: "基础薄弱",
		GapLevel:       "medium",
		Keywords: []intel.KeywordWeight{
			{Keyword: "AI安全", Weight: 20}, {Keyword: "AI safety", Weight: 20}, {Keyword: "alignment", Weight: 15},
			{Keyword: "对齐", Weight: 15}, {Keyword: "治理", Weight: 12}, {Keyword: "governance", Weight: 12},
			{Keyword: "监管", Weight: 10}, {Keyword: "regulation", Weight: 10}, {Keyword: "可解释性", Weight: 12},
			{Keyword: "explainability", Weight: 12}, {Keyword: "interpretability", Weight: 10},
			{Keyword: "红队", Weight: 12}, {Keyword: "red team", Weight: 12}, {Keyword: "jailbreak", Weight: 10},
			{Keyword: "幻觉", Weight: 10}, {Keyword: "hallucination", Weight: 10}, {Keyword: "偏见", Weight: 8},
			{Keyword: "bias", Weight: 8}, {Keyword: "responsible AI", Weight: 10}, {Keyword: "负责任AI", Weight: 10},
		},
	},
	{
		ID:             "genai_apps",
		Topic:          "生成式AI应用",
		Description:    "基于生成式AI的应用落地，包括内容生成、AI编程、设计工具、教育等场景",
		Tags:           []string{"AIGC", "AI编程", "内容创作", "应用落地"},
		OurStatus:      "weak",
		OurStatusLabel: "基础薄弱",
		GapLevel:       "medium",
		Keywords: []intel.KeywordWeight{
			{Keyword: "生成式AI", Weight: 18}, {Keyword: "generative AI", Weight: 18}, {Keyword: "AIGC", Weight: 15},
			{Keyword: "AI绘画", Weight: 12}, {Keyword: "AI编程", Weight: 12}, {Keyword: "AI coding", Weight: 12},
			{Keyword: "Cursor", Weight: 10}, {Keyword: "内容生成", Weight: 10}, {Keyword: "content generation", Weight: 10},
			{Keyword: "AI助手", Weight: 10}, {Keyword: "AI assistant", Weight: 10}, {Keyword: "ChatGPT", Weight: 8},
			{Keyword: "AI教育", Weight: 10}, {Keyword: "AI设计", Weight: 10}, {Keyword: "AI写作", Weight: 10},
			{Keyword: "AI应用", Weight: 8}, {Keyword: "AI产品", Weight: 8}, {Keyword: "商业化", Weight: 6},
		},
	},
}

var platformMap = map[string]string{
	"arxiv_cs_ai":                  "ArXiv",
	"arxiv_cs_lg":                  "ArXiv",
	"arxiv_cs_cl":                  "ArXiv",
	"github_trending":              "GitHub",
	"hacker_news":                  "GitHub",
	"twitter_ai_kol_international": "X",
	"twitter_ai_kol_chinese":       "X",
	"twitter_ai_breakthrough":      "X",
	"twitter_ai_papers":            "X",
	"twitter_ai_industry":          "X",
	"twitter_ai_talent":            "X",
	"twitter_zgci_sentiment":       "X",
}

var kolSourceIDs = map[string]bool{
	"twitter_ai_kol_international": true,
	"twitter_ai_kol_chinese":       true,
}

type typedKeywords struct {
	label    string
	keywords []intel.KeywordWeight
}

var newsTypeKeywords = []typedKeywords{
	{"投融资", []intel.KeywordWeight{
		{Keyword: "融资", Weight: 15}, {Keyword: "估值", Weight: 12}, {Keyword: "投资", Weight: 10}, {Keyword: "风投", Weight: 10},
		{Keyword: "A轮", Weight: 12}, {Keyword: "B轮", Weight: 12}, {Keyword: "C轮", Weight: 12}, {Keyword: "IPO", Weight: 12},
		{Keyword: "funding", Weight: 12}, {Keyword: "valuation", Weight: 10}, {Keyword: "Series", Weight: 8},
	}},
	{"收购", []intel.KeywordWeight{
		{Keyword: "收购", Weight: 20}, {Keyword: "并购", Weight: 18}, {Keyword: "合并", Weight: 15}, {Keyword: "被收购", Weight: 18},
		{Keyword: "acquisition", Weight: 18}, {Keyword: "acquire", Weight: 15}, {Keyword: "merger", Weight: 12},
	}},
	{"政策", []intel.KeywordWeight{
		{Keyword: "政策", Weight: 15}, {Keyword: "意见", Weight: 10}, {Keyword: "通知", Weight: 8}, {Keyword: "指南", Weight: 10},
		{Keyword: "规划", Weight: 10}, {Keyword: "监管", Weight: 12}, {Keyword: "法规", Weight: 10}, {Keyword: "regulation", Weight: 10},
		{Keyword: "policy", Weight: 8}, {Keyword: "国务院", Weight: 12}, {Keyword: "工信部", Weight: 10},
	}},
	{"合作", []intel.KeywordWeight{
		{Keyword: "合作", Weight: 12}, {Keyword: "联合", Weight: 10}, {Keyword: "共建", Weight: 12}, {Keyword: "战略合作", Weight: 15},
		{Keyword: "签约", Weight: 10}, {Keyword: "partnership", Weight: 10}, {Keyword: "collaboration", Weight: 10},
		{Keyword: "联合实验室", Weight: 15}, {Keyword: "产学研", Weight: 12},
	}},
	{"新产品", []intel.KeywordWeight{
		{Keyword: "发布", Weight: 10}, {Keyword: "推出", Weight: 10}, {Keyword: "发布会", Weight: 12}, {Keyword: "新品", Weight: 10},
		{Keyword: "上线", Weight: 8}, {Keyword: "开源", Weight: 10}, {Keyword: "开放", Weight: 6}, {Keyword: "launch", Weight: 10},
		{Keyword: "release", Weight: 10}, {Keyword: "announce", Weight: 8}, {Keyword: "open source", Weight: 10},
	}},
}

var oppTypeKeywords = []typedKeywords{
	{"会议", []intel.KeywordWeight{
		{Keyword: "会议", Weight: 12}, {Keyword: "峰会", Weight: 15}, {Keyword: "论坛", Weight: 12}, {Keyword: "大会", Weight: 12},
		{Keyword: "邀请", Weight: 12}, {Keyword: "conference", Weight: 12}, {Keyword: "summit", Weight: 12},
		{Keyword: "workshop", Weight: 10}, {Keyword: "symposium", Weight: 10},
	}},
	{"合作", []intel.KeywordWeight{
		{Keyword: "合作", Weight: 10}, {Keyword: "共建", Weight: 12}, {Keyword: "联合实验室", Weight: 18},
		{Keyword: "产学研", Weight: 15}, {Keyword: "申报", Weight: 12}, {Keyword: "基金", Weight: 12},
		{Keyword: "专项", Weight: 15}, {Keyword: "资助", Weight: 12}, {Keyword: "招标", Weight: 12},
	}},
	{"内参", []intel.KeywordWeight{
		{Keyword: "内参", Weight: 18}, {Keyword: "征稿", Weight: 12}, {Keyword: "政策解读", Weight: 12},
		{Keyword: "白皮书", Weight: 12}, {Keyword: "报告", Weight: 8}, {Keyword: "指南", Weight: 8},
	}},
}

// uniAIInstituteSources are the university-dimension sources that count as
// AI research institutes for this module.
var uniAIInstituteSources = map[string]bool{
	"baai_news": true, "tsinghua_air": true, "shlab_news": true, "pcl_news": true,
	"ia_cas_news": true, "ict_cas_news": true, "sii_news": true, "slai_news": true,
	"cesi_news": true, "iie_cas_news": true,
}

// TopicMatch is one classification hit
type TopicMatch struct {
	TopicID    string
	MatchScore int
}

// ClassifyArticle matches an article against every topic
func ClassifyArticle(a *intel.Article) []TopicMatch {
	text := a.Title + " " + a.Content
	var matches []TopicMatch
	for _, topic := range Topics {
		if score := intel.KeywordScore(text, topic.Keywords); score >= TopicMatchThreshold {
			matches = append(matches, TopicMatch{TopicID: topic.ID, MatchScore: score})
		}
	}
	return matches
}

// DetectNewsType labels an article 投融资 / 收购 / 政策 / 合作 / 新产品
func DetectNewsType(a *intel.Article) string {
	text := a.Title + " " + intel.Truncate(a.Content, 500)
	bestType, bestScore := "新产品", 0
	for _, entry := range newsTypeKeywords {
		if score := intel.KeywordScore(text, entry.keywords); score > bestScore {
			bestScore = score
			bestType = entry.label
		}
	}
	return bestType
}

// AssessImpact maps a match score to an impact label
func AssessImpact(matchScore int) string {
	switch {
	case matchScore >= 60:
		return "重大"
	case matchScore >= 30:
		return "较大"
	default:
		return "一般"
	}
}

// Opportunity is one detected cooperation or submission opening
type Opportunity struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	Source           string `json:"source"`
	Priority         string `json:"priority"`
	Deadline         string `json:"deadline"`
	Summary          string `json:"summary"`
	AIAssessment     string `json:"aiAssessment"`
	ActionSuggestion string `json:"actionSuggestion"`
}

// DetectOpportunity returns an opportunity when the typed keyword score
// clears the threshold, nil otherwise.
func DetectOpportunity(a *intel.Article) *Opportunity {
	text := a.Title + " " + intel.Truncate(a.Content, 800)
	bestType, bestScore := "", 0
	for _, entry := range oppTypeKeywords {
		if score := intel.KeywordScore(text, entry.keywords); score > bestScore {
			bestScore = score
			bestType = entry.label
		}
	}
	if bestScore < OppMatchThreshold {
		return nil
	}

	deadline := intel.ExtractDeadline(text)
	summary := a.Content
	if summary == "" {
		summary = a.Title
	}
	hash := a.URLHash
	if len(hash) > 16 {
		hash = hash[:16]
	}
	return &Opportunity{
		ID:       fmt.Sprintf("opp_%s", hash),
		Name:     intel.Truncate(a.Title, 60),
		Type:     bestType,
		Source:   sourceLabel(a),
		Priority: computePriority(bestScore, deadline),
		Deadline: deadline,
		Summary:  intel.Truncate(summary, 300),
	}
}

// MapPlatform maps source_id to the display platform name
func MapPlatform(sourceID string) string {
	if platform, ok := platformMap[sourceID]; ok {
		return platform
	}
	return "博客"
}

// IsKOLSource reports whether the source is a KOL twitter stream
func IsKOLSource(sourceID string) bool { return kolSourceIDs[sourceID] }

// IsAIInstituteSource reports whether a university source counts here
func IsAIInstituteSource(sourceID string) bool { return uniAIInstituteSources[sourceID] }

// ComputeHeat derives the trend and percentage label from weekly counts
func ComputeHeat(currentCount, previousCount int) (trend, label string) {
	if previousCount == 0 {
		if currentCount > 0 {
			return "surging", fmt.Sprintf("+%d%%", currentCount*100)
		}
		return "stable", "+0%"
	}

	pct := float64(currentCount-previousCount) / float64(previousCount) * 100
	switch {
	case pct > 100:
		trend = "surging"
	case pct > 20:
		trend = "rising"
	case pct >= -20:
		trend = "stable"
	default:
		trend = "declining"
	}

	sign := ""
	if pct >= 0 {
		sign = "+"
	}
	return trend, fmt.Sprintf("%s%d%%", sign, int(pct))
}

func computePriority(oppScore int, deadline string) string {
	daysLeft := -1
	if days, ok := intel.ComputeDaysLeft(deadline); ok {
		daysLeft = days
	}
	switch {
	case daysLeft > 0 && daysLeft <= 7:
		return "紧急"
	case oppScore >= 40 || (daysLeft > 0 && daysLeft <= 14):
		return "高"
	case oppScore >= 25:
		return "中"
	default:
		return "低"
	}
}

// SplitByPeriod partitions articles into the last `days` and the `days`
// before that, by article date.
func SplitByPeriod(articles []*intel.Article, days int) (current, previous []*intel.Article) {
	now := time.Now().UTC()
	cutoffCurrent := now.AddDate(0, 0, -days)
	cutoffPrevious := now.AddDate(0, 0, -days*2)

	for _, a := range articles {
		dt, err := time.Parse("2006-01-02", a.Date())
		if err != nil {
			continue
		}
		dt = dt.Add(24*time.Hour - time.Second)
		switch {
		case !dt.Before(cutoffCurrent):
			current = append(current, a)
		case !dt.Before(cutoffPrevious):
			previous = append(previous, a)
		}
	}
	return current, previous
}

func sourceLabel(a *intel.Article) string {
	if a.SourceName != "" {
		return a.SourceName
	}
	return a.SourceID
}

// KOLVoice is one statement by a tracked opinion leader
type KOLVoice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation"`
	Influence   string `json:"influence"`
	Statement   string `json:"statement"`
	Platform    string `json:"platform"`
	SourceURL   string `json:"sourceUrl"`
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	Date        string `json:"date"`
}

// BuildKOLVoice projects a KOL tweet onto the voice shape
func BuildKOLVoice(a *intel.Article) KOLVoice {
	name := a.Author
	if name == "" {
		name = a.SourceName
	}
	return KOLVoice{
		ID:         a.URLHash,
		Name:       name,
		Influence:  "高",
		Statement:  intel.Truncate(a.Title, 200),
		Platform:   "X",
		SourceURL:  a.URL,
		SourceID:   a.SourceID,
		SourceName: a.SourceName,
		Date:       a.Date(),
	}
}

// TopicNews is one classified article inside a topic
type TopicNews struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	SourceID   string `json:"source_id"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"sourceUrl"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	Impact     string `json:"impact"`
	Summary    string `json:"summary"`
	AIAnalysis string `json:"aiAnalysis"`
	Relevance  string `json:"relevance"`
}

// BuildTopicNews projects a classified article onto the news shape
func BuildTopicNews(a *intel.Article, matchScore int) TopicNews {
	summary := a.Title
	if a.Content != "" {
		summary = intel.Truncate(a.Content, 200)
	}
	return TopicNews{
		ID:         a.URLHash,
		Title:      a.Title,
		Source:     sourceLabel(a),
		SourceID:   a.SourceID,
		SourceName: a.SourceName,
		SourceURL:  a.URL,
		Type:       DetectNewsType(a),
		Date:       a.Date(),
		Impact:     AssessImpact(matchScore),
		Summary:    summary,
	}
}

// TrendingPost is one cross-platform trending entry
type TrendingPost struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Platform   string `json:"platform"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	SourceURL  string `json:"sourceUrl"`
	Summary    string `json:"summary"`
	Engagement any    `json:"engagement"`
}

// BuildTrendingPost projects an article onto the trending shape
func BuildTrendingPost(a *intel.Article) TrendingPost {
	summary := a.Title
	if a.Content != "" {
		summary = intel.Truncate(a.Content, 200)
	}
	author := a.Author
	if author == "" {
		author = a.SourceName
	}
	return TrendingPost{
		ID:        a.URLHash,
		Title:     a.Title,
		Platform:  MapPlatform(a.SourceID),
		Author:    author,
		Date:      a.Date(),
		SourceURL: a.URL,
		Summary:   summary,
	}
}
