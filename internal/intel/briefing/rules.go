// Package briefing assembles the daily morning report: article collection
// over a date window, metric cards from the processed feeds, and a narrative
// that is model-written when the oracle is available and rule-built
// otherwise.
package briefing

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Input shaping limits for the narrative model
const (
	maxArticlesPerDim = 20
	maxTitleLen       = 80
	maxContentSnippet = 300
)

// dimensionModuleMap routes each dimension to its frontend module
var dimensionModuleMap = map[string]string{
	models.DimensionNationalPolicy: "policy-intel",
	models.DimensionBeijingPolicy:  "policy-intel",
	models.DimensionTechnology:     "tech-frontier",
	models.DimensionTalent:         "talent-radar",
	models.DimensionIndustry:       "tech-frontier",
	models.DimensionUniversities:   "university-eco",
	models.DimensionEvents:         "smart-schedule",
	models.DimensionPersonnel:      "talent-radar",
	models.DimensionTwitter:        "tech-frontier",
}

var dimensionDisplayName = map[string]string{
	models.DimensionNationalPolicy: "国家政策",
	models.DimensionBeijingPolicy:  "北京政策",
	models.DimensionTechnology:     "技术动态",
	models.DimensionTalent:         "人才政策",
	models.DimensionIndustry:       "产业动态",
	models.DimensionUniversities:   "高校动态",
	models.DimensionEvents:         "活动会议",
	models.DimensionPersonnel:      "人事变动",
	models.DimensionTwitter:        "Twitter/KOL",
}

func moduleFor(dimension string) string {
	if module, ok := dimensionModuleMap[dimension]; ok {
		return module
	}
	return "tech-frontier"
}

// Metric is one value on a metric card
type Metric struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Variant string `json:"variant,omitempty"`
}

// MetricCard matches the frontend MetricCardData interface
type MetricCard struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Icon    string   `json:"icon"`
	Metrics []Metric `json:"metrics"`
}

// CollectDailyArticles gathers every article dated within the lookback
// window ending at targetDate, grouped by dimension.
func CollectDailyArticles(store *storage.Storage, targetDate time.Time, lookbackDays int) map[string][]intel.Article {
	from := targetDate.AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	to := targetDate.Format("2006-01-02")

	byDim := map[string][]intel.Article{}
	for dim := range models.ValidDimensions {
		for _, a := range intel.CollectArticles(store, dim) {
			if date := a.Date(); date >= from && date <= to {
				byDim[dim] = append(byDim[dim], a)
			}
		}
	}
	return byDim
}

// ComputeMetricCards builds the five dashboard cards from the day's counts
// and the processed intel files.
func ComputeMetricCards(store *storage.Storage, byDim map[string][]intel.Article) []MetricCard {
	moduleCounts := map[string]int{}
	for dim, articles := range byDim {
		moduleCounts[moduleFor(dim)] += len(articles)
	}

	highMatch, opportunityCount := policyStats(store)
	personnelCount := itemCount(store, "personnel_intel", "changes.json")

	variantIf := func(positive bool, variant string) string {
		if positive {
			return variant
		}
		return "default"
	}

	policyCount := moduleCounts["policy-intel"]
	techCount := len(byDim[models.DimensionTechnology])
	industryCount := len(byDim[models.DimensionIndustry])
	twitterCount := len(byDim[models.DimensionTwitter])
	talentCount := len(byDim[models.DimensionTalent])
	uniCount := moduleCounts["university-eco"]
	eventsCount := moduleCounts["smart-schedule"]

	return []MetricCard{
		{
			ID: "policy-intel", Title: "政策情报", Icon: "policy",
			Metrics: []Metric{
				{Label: "新政策", Value: fmt.Sprintf("%d条", policyCount), Variant: variantIf(policyCount > 0, "success")},
				{Label: "高匹配", Value: fmt.Sprintf("%d条", highMatch), Variant: variantIf(highMatch > 0, "warning")},
				{Label: "待申报", Value: fmt.Sprintf("%d项", opportunityCount)},
			},
		},
		{
			ID: "tech-frontier", Title: "科技前沿", Icon: "tech",
			Metrics: []Metric{
				{Label: "技术动态", Value: fmt.Sprintf("%d条", techCount), Variant: variantIf(techCount > 0, "success")},
				{Label: "行业动态", Value: fmt.Sprintf("%d条", industryCount)},
				{Label: "KOL动态", Value: fmt.Sprintf("%d条", twitterCount)},
			},
		},
		{
			ID: "talent-radar", Title: "人事动态", Icon: "talent",
			Metrics: []Metric{
				{Label: "人事变动", Value: fmt.Sprintf("%d条", personnelCount), Variant: variantIf(personnelCount > 0, "success")},
				{Label: "人才政策", Value: fmt.Sprintf("%d条", talentCount)},
				{Label: "总计", Value: fmt.Sprintf("%d条", moduleCounts["talent-radar"])},
			},
		},
		{
			ID: "university-eco", Title: "高校生态", Icon: "university",
			Metrics: []Metric{
				{Label: "高校动态", Value: fmt.Sprintf("%d条", uniCount), Variant: variantIf(uniCount > 0, "success")},
			},
		},
		{
			ID: "smart-schedule", Title: "智能日程", Icon: "calendar",
			Metrics: []Metric{
				{Label: "活动会议", Value: fmt.Sprintf("%d条", eventsCount), Variant: variantIf(eventsCount > 0, "success")},
			},
		},
	}
}

func policyStats(store *storage.Storage) (highMatch, opportunityCount int) {
	var feed struct {
		Items []struct {
			MatchScore int `json:"matchScore"`
		} `json:"items"`
	}
	if err := storage.ReadJSON(filepath.Join(store.ProcessedDir("policy_intel"), "feed.json"), &feed); err == nil {
		for _, item := range feed.Items {
			if item.MatchScore >= 70 {
				highMatch++
			}
		}
	}
	return highMatch, itemCount(store, "policy_intel", "opportunities.json")
}

func itemCount(store *storage.Storage, module, file string) int {
	var doc struct {
		Items []map[string]any `json:"items"`
	}
	if err := storage.ReadJSON(filepath.Join(store.ProcessedDir(module), file), &doc); err != nil {
		return 0
	}
	return len(doc.Items)
}

// moduleGroups orders the narrative input sections
var moduleGroups = []struct {
	name       string
	dimensions []string
}{
	{"政策情报", []string{models.DimensionNationalPolicy, models.DimensionBeijingPolicy}},
	{"科技前沿", []string{models.DimensionTechnology, models.DimensionIndustry, models.DimensionTwitter}},
	{"高校动态", []string{models.DimensionUniversities}},
	{"人事动态", []string{models.DimensionTalent, models.DimensionPersonnel}},
	{"活动会议", []string{models.DimensionEvents}},
}

// ArticleMeta is the per-article metadata injected into link segments when
// the narrative model references an article by its short ID.
type ArticleMeta struct {
	URL            string
	ContentSnippet string
	SourceName     string
}

// PrepareNarrativeInput renders the day's articles as the structured text
// the narrative model consumes, plus an index from short article ID to the
// metadata used to hydrate link segments. New items come first within each
// dimension.
func PrepareNarrativeInput(byDim map[string][]intel.Article) (string, map[string]ArticleMeta) {
	var lines []string
	index := map[string]ArticleMeta{}

	for _, group := range moduleGroups {
		total := 0
		for _, dim := range group.dimensions {
			total += len(byDim[dim])
		}
		if total == 0 {
			continue
		}

		lines = append(lines, fmt.Sprintf("\n### %s（共%d条）", group.name, total), "")

		for _, dim := range group.dimensions {
			articles := append([]intel.Article(nil), byDim[dim]...)
			if len(articles) == 0 {
				continue
			}
			sort.SliceStable(articles, func(i, j int) bool {
				return articles[i].PublishedAt > articles[j].PublishedAt
			})
			sort.SliceStable(articles, func(i, j int) bool {
				return articles[i].IsNew && !articles[j].IsNew
			})

			displayName := dimensionDisplayName[dim]
			if displayName == "" {
				displayName = dim
			}
			limit := len(articles)
			if limit > maxArticlesPerDim {
				limit = maxArticlesPerDim
			}
			for _, a := range articles[:limit] {
				title := strings.TrimSpace(a.Title)
				if len([]rune(title)) > maxTitleLen {
					title = intel.Truncate(title, maxTitleLen) + "..."
				}
				shortID := a.URLHash
				if len(shortID) > 8 {
					shortID = shortID[:8]
				}
				idTag := ""
				if shortID != "" {
					idTag = fmt.Sprintf("[#%s] ", shortID)
					index[shortID] = ArticleMeta{
						URL:            a.URL,
						ContentSnippet: intel.Truncate(strings.TrimSpace(a.Content), 200),
						SourceName:     a.SourceName,
					}
				}
				lines = append(lines, fmt.Sprintf("%s[%s] %s（来源: %s, %s）",
					idTag, displayName, title, a.SourceName, a.Date()))

				if content := strings.TrimSpace(a.Content); content != "" {
					snippet := intel.Truncate(content, maxContentSnippet)
					if len([]rune(content)) > maxContentSnippet {
						snippet += "..."
					}
					lines = append(lines, "  正文摘要: "+snippet)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), index
}

// BuildMetricSummary is the short statistical preamble for the model prompt
func BuildMetricSummary(byDim map[string][]intel.Article, targetDate time.Time) string {
	total := 0
	dimCount := 0
	for _, articles := range byDim {
		if len(articles) > 0 {
			dimCount++
		}
		total += len(articles)
	}

	parts := []string{
		"日期: " + targetDate.Format("2006-01-02"),
		fmt.Sprintf("总计: %d条信息，覆盖%d个维度", total, dimCount),
	}

	national := len(byDim[models.DimensionNationalPolicy])
	beijing := len(byDim[models.DimensionBeijingPolicy])
	if national+beijing > 0 {
		var detail []string
		if national > 0 {
			detail = append(detail, fmt.Sprintf("国家级 %d条", national))
		}
		if beijing > 0 {
			detail = append(detail, fmt.Sprintf("北京市 %d条", beijing))
		}
		parts = append(parts, fmt.Sprintf("政策情报: %d条新政策（%s）", national+beijing, strings.Join(detail, ", ")))
	}

	tech := len(byDim[models.DimensionTechnology])
	industry := len(byDim[models.DimensionIndustry])
	twitter := len(byDim[models.DimensionTwitter])
	if tech+industry+twitter > 0 {
		var detail []string
		if tech > 0 {
			detail = append(detail, fmt.Sprintf("技术 %d篇", tech))
		}
		if industry > 0 {
			detail = append(detail, fmt.Sprintf("行业 %d篇", industry))
		}
		if twitter > 0 {
			detail = append(detail, fmt.Sprintf("KOL %d篇", twitter))
		}
		parts = append(parts, fmt.Sprintf("科技前沿: %d篇（%s）", tech+industry+twitter, strings.Join(detail, ", ")))
	}

	talent := len(byDim[models.DimensionTalent])
	personnel := len(byDim[models.DimensionPersonnel])
	if talent+personnel > 0 {
		var detail []string
		if personnel > 0 {
			detail = append(detail, fmt.Sprintf("人事变动 %d条", personnel))
		}
		if talent > 0 {
			detail = append(detail, fmt.Sprintf("人才政策 %d条", talent))
		}
		parts = append(parts, fmt.Sprintf("人事动态: %d条（%s）", talent+personnel, strings.Join(detail, ", ")))
	}

	if uni := len(byDim[models.DimensionUniversities]); uni > 0 {
		parts = append(parts, fmt.Sprintf("高校动态: %d篇", uni))
	}
	if events := len(byDim[models.DimensionEvents]); events > 0 {
		parts = append(parts, fmt.Sprintf("活动会议: %d个", events))
	}

	parts = append(parts, "", "请为每个有数据的维度都生成至少一个段落，每段尽量覆盖该维度3-5条重要信息。")
	return strings.Join(parts, "\n")
}
