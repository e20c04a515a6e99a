package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/argus/internal/intel/techfrontier"
)

const topicSystemPrompt = `你是中关村人工智能研究院（ZGCAI）的技术趋势分析专家。你的任务是分析某个技术主题下的最新动态，
为院领导提供战略情报。

` + instituteBackground + `
- 关注重点：技术路线、竞争格局、合作机会、人才引进

请严格以 JSON 格式输出以下字段（不要包含任何其他文本）：
{
  "aiSummary": "本周该技术方向的动态概要，100字以内，提及关键事件和趋势",
  "aiInsight": "对我院的战略建议，100字以内，具体可操作",
  "aiRiskAssessment": "风险预警（仅当缺口较大时填写），80字以内，或null",
  "memoSuggestion": "内参选题建议（如有值得撰写的内参），80字以内，或null"
}`

const opportunitySystemPrompt = `你是中关村人工智能研究院（ZGCAI）的战略合作分析专家。分析以下科技前沿机会，
为院领导提供评估和行动建议。

请严格以 JSON 格式输出以下字段（不要包含任何其他文本）：
{
  "aiAssessment": "对该机会的评估，100字以内，分析价值和风险",
  "actionSuggestion": "具体行动建议，60字以内"
}`

const frontierPromptLimit = 4000

// EnrichTopic generates the weekly summary, insight and risk fields for
// one tech topic.
func (c *Client) EnrichTopic(ctx context.Context, topic *techfrontier.Topic) (*techfrontier.TopicEnrichment, error) {
	var news []string
	for i, n := range topic.RelatedNews {
		if i == 15 {
			break
		}
		news = append(news, fmt.Sprintf("- [%s] %s (%s, %s)", n.Type, n.Title, n.Source, n.Date))
	}

	var kols []string
	for i, k := range topic.KOLVoices {
		if i == 5 {
			break
		}
		kols = append(kols, fmt.Sprintf("- %s: %s", k.Name, k.Statement))
	}

	user := fmt.Sprintf(
		"技术主题：%s\n描述：%s\n热度趋势：%s (%s)\n我院布局：%s，差距级别：%s\n本周信号数：%d\n\n最新动态：\n%s\n\n",
		topic.Topic, topic.Description, topic.HeatTrend, topic.HeatLabel,
		topic.OurStatusLabel, topic.GapLevel, topic.SignalsSinceLastWeek,
		strings.Join(news, "\n"),
	)
	if len(kols) > 0 {
		user += "KOL 言论：\n" + strings.Join(kols, "\n") + "\n"
	}
	if runes := []rune(user); len(runes) > frontierPromptLimit {
		user = string(runes[:frontierPromptLimit])
	}

	var reply struct {
		AISummary        string `json:"aiSummary"`
		AIInsight        string `json:"aiInsight"`
		AIRiskAssessment string `json:"aiRiskAssessment"`
		MemoSuggestion   string `json:"memoSuggestion"`
	}
	if err := c.completeJSON(ctx, topicSystemPrompt, user, 1500, &reply); err != nil {
		return nil, err
	}

	enrichment := &techfrontier.TopicEnrichment{
		AISummary:      reply.AISummary,
		AIInsight:      reply.AIInsight,
		MemoSuggestion: nullToEmpty(reply.MemoSuggestion),
	}
	// Risk assessments only apply where the gap is real
	if topic.GapLevel == "high" {
		enrichment.AIRiskAssessment = nullToEmpty(reply.AIRiskAssessment)
	}
	return enrichment, nil
}

// EnrichOpportunity generates the assessment and action suggestion for
// one detected opportunity.
func (c *Client) EnrichOpportunity(ctx context.Context, opp *techfrontier.Opportunity) (*techfrontier.OpportunityEnrichment, error) {
	deadline := opp.Deadline
	if deadline == "" {
		deadline = "未知"
	}
	user := fmt.Sprintf(
		"机会名称：%s\n类型：%s\n来源：%s\n优先级：%s\n截止日期：%s\n摘要：%s\n",
		opp.Name, opp.Type, opp.Source, opp.Priority, deadline, opp.Summary,
	)

	var reply struct {
		AIAssessment     string `json:"aiAssessment"`
		ActionSuggestion string `json:"actionSuggestion"`
	}
	if err := c.completeJSON(ctx, opportunitySystemPrompt, user, 800, &reply); err != nil {
		return nil, err
	}

	return &techfrontier.OpportunityEnrichment{
		AIAssessment:     reply.AIAssessment,
		ActionSuggestion: reply.ActionSuggestion,
	}, nil
}

func nullToEmpty(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "null") {
		return ""
	}
	return s
}
