// Package intel holds the shared machinery of the analytical processors:
// keyword scoring, regex field extraction, the incremental hash tracker, and
// the standard output envelope.
package intel

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// KeywordWeight is one weighted dictionary entry
type KeywordWeight struct {
	Keyword string
	Weight  int
}

// KeywordScore scans text case-insensitively and accumulates the weights of
// every matching keyword. The result is raw; callers clamp it.
func KeywordScore(text string, keywords []KeywordWeight) int {
	lower := strings.ToLower(text)
	score := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw.Keyword)) {
			score += kw.Weight
		}
	}
	return score
}

// ClampScore bounds a score to [0,100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Importance bands
const (
	ImportanceUrgent = "紧急"
	ImportanceHigh   = "重要"
	ImportanceWatch  = "关注"
	ImportanceNormal = "一般"
)

// defaultHighKeywords trigger 重要 from the title alone
var defaultHighKeywords = []string{"人工智能", "AI", "中关村", "大模型"}

// ComputeImportance derives the importance band. A deadline within 14 days
// is 紧急 regardless of score; nil highKeywords selects the default set.
func ComputeImportance(matchScore int, deadline, title string, highKeywords []string) string {
	if highKeywords == nil {
		highKeywords = defaultHighKeywords
	}

	if days, ok := daysUntil(deadline); ok && days > 0 && days <= 14 {
		return ImportanceUrgent
	}
	if matchScore >= 70 {
		return ImportanceHigh
	}
	for _, kw := range highKeywords {
		if strings.Contains(title, kw) {
			return ImportanceHigh
		}
	}
	if matchScore >= 40 {
		return ImportanceWatch
	}
	return ImportanceNormal
}

var fundingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:不超过|最高|最多|上限)?\s*(\d+(?:\.\d+)?(?:\s*[-~至到]\s*\d+(?:\.\d+)?)?)\s*万(?:元)?`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*亿(?:元)?`),
}

var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`截止[日时]?[期间]?[为：:\s]*(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`),
	regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日\s*[前止]`),
	regexp.MustCompile(`截止[日时]?[期间]?[为：:\s]*(\d{4})[/-](\d{1,2})[/-](\d{1,2})`),
}

const leaderTitles = `总理|副总理|部长|副部长|主任|副主任|书记|副书记` +
	`|院长|副院长|局长|副局长|委员|主席|副主席` +
	`|市长|副市长|区长|副区长|司长|副司长`

var leaderNameRe = regexp.MustCompile(
	`(?:` + leaderTitles + `)\s*([\x{4e00}-\x{9fa5}]{2,4})` +
		`|([\x{4e00}-\x{9fa5}]{2,4})\s*(?:` + leaderTitles + `)`)

// ExtractFunding returns the first funding amount mention, or ""
func ExtractFunding(text string) string {
	for _, re := range fundingPatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// ExtractDeadline returns the first deadline as YYYY-MM-DD, or ""
func ExtractDeadline(text string) string {
	for _, re := range deadlinePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t, err := time.Parse("2006-1-2", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
		if err != nil {
			continue
		}
		return t.Format("2006-01-02")
	}
	return ""
}

// ExtractLeader finds a name adjacent to a leadership title, or ""
func ExtractLeader(text string) string {
	m := leaderNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func daysUntil(deadline string) (int, bool) {
	if deadline == "" {
		return 0, false
	}
	dl, err := time.Parse("2006-01-02", deadline)
	if err != nil {
		return 0, false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return int(dl.Sub(today).Hours() / 24), true
}

// ComputeDaysLeft returns days from today to the deadline, floored at zero;
// ok is false when no deadline is parseable.
func ComputeDaysLeft(deadline string) (int, bool) {
	days, ok := daysUntil(deadline)
	if !ok {
		return 0, false
	}
	if days < 0 {
		days = 0
	}
	return days, true
}

// Article is one raw item joined with its artifact context; the processors
// work on this view rather than on raw artifacts.
type Article struct {
	models.CrawledItem
	SourceName string `json:"source_name"`
	Group      string `json:"group,omitempty"`
}

var (
	urlDateFullRe  = regexp.MustCompile(`/t(\d{4})(\d{2})(\d{2})_`)
	urlDateMonthRe = regexp.MustCompile(`/(\d{4})(\d{2})/t\d+`)
)

// Date resolves the article's display date: published_at, then the URL path
// patterns, then today.
func (a *Article) Date() string {
	if a.PublishedAt != "" {
		return a.PublishedAt
	}
	if m := urlDateFullRe.FindStringSubmatch(a.URL); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3])
	}
	if m := urlDateMonthRe.FindStringSubmatch(a.URL); m != nil {
		return fmt.Sprintf("%s-%s-01", m[1], m[2])
	}
	return time.Now().UTC().Format("2006-01-02")
}

// Text joins title and a bounded content prefix for keyword scanning
func (a *Article) Text(contentLimit int) string {
	content := a.Content
	if contentLimit > 0 {
		runes := []rune(content)
		if len(runes) > contentLimit {
			content = string(runes[:contentLimit])
		}
	}
	return a.Title + "\n" + content
}

// CollectArticles flattens the raw artifacts of the given dimensions into
// the article view, deduplicated by url_hash across dimensions.
func CollectArticles(store *storage.Storage, dimensions ...string) []Article {
	var articles []Article
	seen := map[string]bool{}
	for _, dim := range dimensions {
		for _, artifact := range store.Artifacts.ListDimension(dim) {
			for _, item := range artifact.Items {
				if item.URLHash == "" || seen[item.URLHash] {
					continue
				}
				seen[item.URLHash] = true
				articles = append(articles, Article{
					CrawledItem: item,
					SourceName:  artifact.SourceName,
					Group:       artifact.Group,
				})
			}
		}
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Date() > articles[j].Date()
	})
	return articles
}

// Truncate bounds a string by rune count
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
