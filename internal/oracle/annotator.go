package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/intel/personnel"
	"github.com/ternarybob/argus/internal/intel/policy"
)

const contentTruncateLen = 3000

const instituteBackground = `研究院背景：
- 全称：中关村人工智能研究院
- 位于北京市海淀区中关村科学城
- 主要方向：人工智能基础研究、大模型、具身智能、AI+行业应用、人才培养`

const policySystemPrompt = `你是中关村人工智能研究院（ZGCAI）的政策分析专家。分析以下政策文件，` +
	`生成摘要和建议。系统已通过规则引擎预先计算了 matchScore 和 importance，` +
	`你可以微调这两个值。

研究院背景：北京海淀区中关村科学城，主攻 AI 基础研究、大模型、具身智能。

请严格以 JSON 格式输出以下字段（不要包含任何其他文本）：
{
  "summary": "1-2 句话中文摘要，50字以内",
  "matchScore": 0到100的整数（可微调预设分数）,
  "importance": "紧急|重要|关注|一般（可微调预设等级）",
  "signals": ["关键信号1", "关键信号2"],
  "aiInsight": "对研究院的具体建议，50字以内",
  "detail": "详细分析，100字以内"
}

matchScore 评分标准：
- 0-20: 与 AI/科技/教育/创新完全无关
- 20-40: 间接相关（一般经济政策、一般教育政策）
- 40-60: 相关领域（科研经费、科技产业、教育改革、人才政策）
- 60-80: 直接相关（AI 政策、中关村政策、研究院资金、海淀区科技）
- 80-100: 高度匹配（明确提及 AI 研究院/新型研发机构/算力补贴/大模型专项）`

const personnelSystemPrompt = `你是中关村人工智能研究院（ZGCAI）的人事情报分析专家。你的任务是分析人事变动记录，
评估其与研究院的相关性，并提取结构化字段用于院长决策支持系统。

` + instituteBackground + `
- 重点关注：教育部/科技部/中关村管委会相关人事变动、高校AI领域领导层变化、
  科研机构负责人更替、可能影响研究院合作关系的人员调整

你将收到一条人事变动记录，包含 name/action/position/department 以及原文。
请严格以 JSON 格式输出以下字段（不要包含任何其他文本）：
{
  "relevance": 0到100的整数,
  "importance": "紧急|重要|关注|一般",
  "group": "action|watch",
  "note": "为什么这条变动对研究院重要（1句话，20字以内）",
  "actionSuggestion": "建议院长采取的具体行动（1句话，30字以内）",
  "background": "此人或此职位的简要背景（2-3句话，60字以内）",
  "signals": ["关键信号标签1", "关键信号标签2"],
  "aiInsight": "深度分析此变动对研究院的影响（2-3句话，80字以内）"
}

relevance 评分标准：
- 0-20: 与研究院完全无关（如退役军人、残联等）
- 20-40: 间接相关（一般部委人事调整）
- 40-60: 相关领域（教育/科技系统、北京市政府）
- 60-80: 直接相关（高校AI院系、科技主管部门）
- 80-100: 高度相关（教育部科技部核心岗位、中关村/海淀、AI研究机构）

group 判断标准：
- action: relevance >= 50，或涉及研究院直接合作单位，需要院长采取行动
- watch: relevance < 50，或虽然相关但暂不需行动，持续关注即可

importance 判断标准：
- 紧急: 直接影响研究院现有合作关系或项目
- 重要: 涉及教育部/科技部/中关村核心岗位，或高校AI领域校长/院长变动
- 关注: 涉及相关领域但影响间接
- 一般: 与研究院关联很弱`

var validImportance = map[string]bool{"紧急": true, "重要": true, "关注": true, "一般": true}

// Annotate produces the model annotation for one article or one personnel
// change, depending on the consuming module.
func (c *Client) Annotate(ctx context.Context, module string, article intel.Article, fields map[string]any) (*intel.Annotation, error) {
	switch module {
	case personnel.Module:
		return c.annotatePersonnelChange(ctx, article, fields)
	case policy.Module:
		return c.annotatePolicy(ctx, article, fields)
	default:
		return c.annotatePolicy(ctx, article, fields)
	}
}

func truncateContent(content string) string {
	runes := []rune(content)
	if len(runes) > contentTruncateLen {
		return string(runes[:contentTruncateLen]) + "...(截断)"
	}
	return content
}

func (c *Client) annotatePolicy(ctx context.Context, article intel.Article, fields map[string]any) (*intel.Annotation, error) {
	content := truncateContent(article.Content)
	if strings.TrimSpace(content) == "" {
		content = "（正文不可用，请仅根据标题和来源分析）"
	}
	published := article.PublishedAt
	if published == "" {
		published = "未知日期"
	}

	user := fmt.Sprintf(
		"标题：%s\n来源：%s\n维度：%s\n发布日期：%s\n规则评分：matchScore=%v importance=%v\n正文：\n%s",
		article.Title, article.SourceName, article.Dimension, published,
		fields["matchScore"], fields["importance"], content,
	)

	var reply struct {
		Summary    string   `json:"summary"`
		MatchScore int      `json:"matchScore"`
		Importance string   `json:"importance"`
		Signals    []string `json:"signals"`
		AIInsight  string   `json:"aiInsight"`
		Detail     string   `json:"detail"`
	}
	if err := c.completeJSON(ctx, policySystemPrompt, user, 1500, &reply); err != nil {
		return nil, err
	}

	annotation := &intel.Annotation{
		AIInsight: reply.AIInsight,
		Detail:    reply.Detail,
		Signals:   cleanSignals(reply.Signals),
	}
	if validImportance[reply.Importance] {
		annotation.Importance = reply.Importance
	}
	return annotation, nil
}

func (c *Client) annotatePersonnelChange(ctx context.Context, article intel.Article, fields map[string]any) (*intel.Annotation, error) {
	department, _ := fields["department"].(string)
	if department == "" {
		department = "未知部门"
	}

	var lines []string
	lines = append(lines,
		"文章标题："+article.Title,
		"来源："+article.SourceName,
		"发布日期："+orUnknown(article.PublishedAt),
		"",
		fmt.Sprintf("人事变动记录：%v %v → %v (%s)",
			fields["action"], fields["name"], fields["position"], department),
	)
	if content := strings.TrimSpace(article.Content); content != "" {
		lines = append(lines, "", "原文（供参考）：", truncateContent(content))
	}

	var reply struct {
		Relevance        int      `json:"relevance"`
		Importance       string   `json:"importance"`
		Group            string   `json:"group"`
		Note             string   `json:"note"`
		ActionSuggestion string   `json:"actionSuggestion"`
		Background       string   `json:"background"`
		Signals          []string `json:"signals"`
		AIInsight        string   `json:"aiInsight"`
	}
	if err := c.completeJSON(ctx, personnelSystemPrompt, strings.Join(lines, "\n"), 1500, &reply); err != nil {
		return nil, err
	}

	relevance := intel.ClampScore(reply.Relevance)
	importance := reply.Importance
	if !validImportance[importance] {
		importance = "一般"
	}
	group := reply.Group
	if group != "action" && group != "watch" {
		group = "watch"
		if relevance >= 50 {
			group = "action"
		}
	}

	return &intel.Annotation{
		Relevance:        relevance,
		Importance:       importance,
		Group:            group,
		Note:             reply.Note,
		ActionSuggestion: reply.ActionSuggestion,
		Background:       reply.Background,
		Signals:          cleanSignals(reply.Signals),
		AIInsight:        reply.AIInsight,
	}, nil
}

func cleanSignals(signals []string) []string {
	out := make([]string, 0, len(signals))
	for _, s := range signals {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orUnknown(date string) string {
	if date == "" {
		return "未知日期"
	}
	return date
}
