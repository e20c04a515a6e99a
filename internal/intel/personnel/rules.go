// Package personnel extracts structured personnel change records (appointment,
// dismissal, election, retirement) from government notices. The extraction is
// pure regex; the oracle only adds interpretation on top.
package personnel

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/argus/internal/intel"
)

var personnelKeywords = []intel.KeywordWeight{
	// Tier A: directly relevant departments
	{Keyword: "教育部", Weight: 20},
	{Keyword: "科技部", Weight: 20},
	{Keyword: "中关村", Weight: 20},
	{Keyword: "海淀", Weight: 18},
	{Keyword: "科学技术", Weight: 15},
	{Keyword: "人工智能", Weight: 25},
	// Tier B: related departments and roles
	{Keyword: "发改委", Weight: 10},
	{Keyword: "工信部", Weight: 10},
	{Keyword: "基金委", Weight: 10},
	{Keyword: "高校", Weight: 10},
	{Keyword: "校长", Weight: 10},
	{Keyword: "副校长", Weight: 10},
	{Keyword: "院长", Weight: 8},
	{Keyword: "研究院", Weight: 12},
	// Tier C: general government
	{Keyword: "国务院", Weight: 5},
	{Keyword: "北京市", Weight: 5},
	{Keyword: "部长", Weight: 5},
	{Keyword: "副部长", Weight: 5},
}

// highImportanceKeywords trigger 重要 from the title alone
var highImportanceKeywords = []string{"教育部", "科技部", "人工智能", "中关村", "校长"}

// "任命黄如（女）为国家发展和改革委员会副主任"
var appointmentRe = regexp.MustCompile(
	`任命\s*([\x{4e00}-\x{9fa5}]{2,4})(?:（[^）]*）)?\s*为\s*([^；。\n]+)`)

// "免去孙其信的中国农业大学校长职务"
var dismissalRe = regexp.MustCompile(
	`免去\s*([\x{4e00}-\x{9fa5}]{2,4})(?:（[^）]*）)?\s*的\s*(.+?)职务`)

// "王恩哥当选中国科学院副院长"
var electionRe = regexp.MustCompile(
	`([\x{4e00}-\x{9fa5}]{2,4})(?:（[^）]*）)?\s*当选(?:为)?\s*([^；。，\n]+)`)

// "邱勇卸任清华大学校长职务" / "……退休"
var retirementRe = regexp.MustCompile(
	`([\x{4e00}-\x{9fa5}]{2,4})(?:（[^）]*）)?\s*(?:卸任|退休，不再担任)\s*([^；。，\n]*?)(?:职务|一职)?(?:[；。，\n]|$)`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// departmentMap is ordered; the first matching keyword wins
var departmentMap = []struct{ keyword, department string }{
	{"教育部", "教育部"},
	{"科技部", "科技部"},
	{"国家发展和改革委员会", "国家发改委"},
	{"发展改革委", "国家发改委"},
	{"工业和信息化部", "工信部"},
	{"工信部", "工信部"},
	{"人力资源和社会保障部", "人社部"},
	{"住房和城乡建设部", "住建部"},
	{"退役军人事务部", "退役军人事务部"},
	{"商务部", "商务部"},
	{"自然科学基金委", "国家自然科学基金委"},
	{"中央广播电视总台", "中央广播电视总台"},
	{"国家行政学院", "国家行政学院"},
	{"中国残疾人联合会", "中国残联"},
	{"北京市", "北京市政府"},
	{"海淀", "海淀区"},
	{"中关村", "中关村"},
}

var universityRe = regexp.MustCompile(`([\x{4e00}-\x{9fa5}]{2,8}(?:大学|学院|研究院))`)

// Actions
const (
	ActionAppoint = "任命"
	ActionDismiss = "免去"
	ActionElect   = "当选"
	ActionRetire  = "卸任"
)

// Change is one structured appointment or dismissal
type Change struct {
	Name            string `json:"name"`
	Action          string `json:"action"`
	Position        string `json:"position"`
	Department      string `json:"department,omitempty"`
	Date            string `json:"date,omitempty"`
	SourceArticleID string `json:"source_article_id"`
}

// ChangeID is a stable short identifier over (name, action, position)
func ChangeID(c Change) string {
	key := fmt.Sprintf("%s-%s-%s", c.Name, c.Action, c.Position)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))[:16]
}

func inferDepartment(position string) string {
	for _, entry := range departmentMap {
		if strings.Contains(position, entry.keyword) {
			return entry.department
		}
	}
	if m := universityRe.FindStringSubmatch(position); m != nil {
		return m[1]
	}
	return ""
}

// ExtractChanges pulls every appointment and dismissal out of an article,
// deduplicated by (name, action, position).
func ExtractChanges(a *intel.Article) []Change {
	text := a.Title + "\n" + a.Content

	artDate := ""
	if a.PublishedAt != "" {
		artDate = a.PublishedAt
	}

	var changes []Change
	seen := map[string]bool{}
	collect := func(re *regexp.Regexp, action string) {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			position := whitespaceRe.ReplaceAllString(strings.TrimSpace(m[2]), "")
			key := name + "\x00" + action + "\x00" + position
			if seen[key] {
				continue
			}
			seen[key] = true
			changes = append(changes, Change{
				Name:            name,
				Action:          action,
				Position:        position,
				Department:      inferDepartment(position),
				Date:            artDate,
				SourceArticleID: a.URLHash,
			})
		}
	}
	collect(appointmentRe, ActionAppoint)
	collect(dismissalRe, ActionDismiss)
	collect(electionRe, ActionElect)
	collect(retirementRe, ActionRetire)
	return changes
}

// Enrichment is the rules result for one personnel article
type Enrichment struct {
	MatchScore  int      `json:"matchScore"`
	Importance  string   `json:"importance"`
	Changes     []Change `json:"changes"`
	ChangeCount int      `json:"change_count"`
	Tier        string   `json:"enrichment_tier"`
}

// EnrichByRules scores the article and extracts its changes
func EnrichByRules(a *intel.Article) *Enrichment {
	changes := ExtractChanges(a)
	score := intel.ClampScore(intel.KeywordScore(a.Text(3000), personnelKeywords))
	return &Enrichment{
		MatchScore:  score,
		Importance:  intel.ComputeImportance(score, "", a.Title, highImportanceKeywords),
		Changes:     changes,
		ChangeCount: len(changes),
		Tier:        intel.TierRules,
	}
}
