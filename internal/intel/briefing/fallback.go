package briefing

import (
	"fmt"
	"strings"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
)

func fallbackLink(a *intel.Article, moduleID, action string) Segment {
	return MakeLink(a.Title, moduleID, action, a.URL, a.Content, a.SourceName)
}

// BuildFallback writes a rule-based narrative when the oracle is
// unavailable: an opening overview followed by one paragraph per populated
// dimension group, each referencing its top articles.
func BuildFallback(byDim map[string][]intel.Article) *Narrative {
	total := 0
	dimCount := 0
	for _, articles := range byDim {
		total += len(articles)
		if len(articles) > 0 {
			dimCount++
		}
	}

	var paragraphs []Paragraph

	policyArticles := append(
		append([]intel.Article(nil), byDim[models.DimensionNationalPolicy]...),
		byDim[models.DimensionBeijingPolicy]...)

	opening := Paragraph{
		Plain(fmt.Sprintf("院长，今日共监测到%d条信息更新，覆盖%d个维度。", total, dimCount)),
	}
	if len(policyArticles) > 0 {
		opening = append(opening,
			Plain("最新政策方面，"),
			fallbackLink(&policyArticles[0], "policy-intel", "查看政策"),
			Plain("值得优先关注。"))
	} else {
		opening = append(opening, Plain("以下是各维度重要信息汇总。"))
	}
	paragraphs = append(paragraphs, opening)

	if len(policyArticles) > 1 {
		para := Paragraph{Plain("政策情报方面，除上述政策外，")}
		rest := policyArticles[1:]
		if len(rest) > 2 {
			rest = rest[:2]
		}
		for i := range rest {
			if i > 0 {
				para = append(para, Plain("同时，"))
			}
			para = append(para, fallbackLink(&rest[i], "policy-intel", "查看政策"), Plain("，"))
		}
		para = append(para, Plain(fmt.Sprintf("共%d条政策信息。", len(policyArticles))))
		paragraphs = append(paragraphs, para)
	}

	techArticles := append(
		append([]intel.Article(nil), byDim[models.DimensionTechnology]...),
		byDim[models.DimensionIndustry]...)
	if len(techArticles) > 0 {
		para := Paragraph{Plain(fmt.Sprintf("科技前沿方面，今日共%d条动态。", len(techArticles)))}
		top := techArticles
		if len(top) > 3 {
			top = top[:3]
		}
		for i := range top {
			if i > 0 {
				para = append(para, Plain("此外，"))
			}
			para = append(para, fallbackLink(&top[i], "tech-frontier", "查看前沿"), Plain("。"))
		}
		paragraphs = append(paragraphs, para)
	}

	uniArticles := byDim[models.DimensionUniversities]
	if len(uniArticles) > 0 {
		para := Paragraph{Plain(fmt.Sprintf("高校动态方面，今日共%d条更新。", len(uniArticles)))}
		top := uniArticles
		if len(top) > 3 {
			top = top[:3]
		}
		for i := range top {
			if i > 0 {
				para = append(para, Plain("另外，"))
			}
			para = append(para, fallbackLink(&top[i], "university-eco", ""), Plain("。"))
		}
		paragraphs = append(paragraphs, para)
	}

	personnelArticles := byDim[models.DimensionPersonnel]
	talentArticles := byDim[models.DimensionTalent]
	if len(personnelArticles)+len(talentArticles) > 0 {
		para := Paragraph{Plain("人事动态方面，")}
		combined := append(capped(personnelArticles, 2), capped(talentArticles, 2)...)
		if len(combined) > 3 {
			combined = combined[:3]
		}
		for i := range combined {
			if i > 0 {
				para = append(para, Plain("同时，"))
			}
			para = append(para, fallbackLink(&combined[i], "talent-radar", ""), Plain("。"))
		}
		paragraphs = append(paragraphs, para)
	}

	eventArticles := byDim[models.DimensionEvents]
	if len(eventArticles) > 0 {
		para := Paragraph{Plain(fmt.Sprintf("活动会议方面，今日共%d条信息。", len(eventArticles)))}
		top := eventArticles
		if len(top) > 2 {
			top = top[:2]
		}
		for i := range top {
			if i > 0 {
				para = append(para, Plain("此外，"))
			}
			para = append(para, fallbackLink(&top[i], "smart-schedule", ""), Plain("。"))
		}
		paragraphs = append(paragraphs, para)
	}

	var summaryParts []string
	if len(policyArticles) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d条政策", len(policyArticles)))
	}
	if len(techArticles) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d条科技动态", len(techArticles)))
	}
	if len(uniArticles) > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("%d条高校动态", len(uniArticles)))
	}

	return &Narrative{
		Paragraphs: paragraphs,
		Summary:    fmt.Sprintf("今日共%d条信息：%s等。", total, strings.Join(summaryParts, "、")),
	}
}

func capped(articles []intel.Article, limit int) []intel.Article {
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return append([]intel.Article(nil), articles...)
}
