package universityeco

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/intel"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// Module is the processed-output directory name
const Module = "university_eco"

var groupNames = map[string]string{
	"university_news": "高校新闻",
	"ai_institutes":   "AI研究院",
	"provincial":      "省级教育",
	"awards":          "奖项荣誉",
	"aggregators":     "教育媒体",
}

var paginationRe = regexp.MustCompile(`^\d{1,4}$`)

var junkTitles = map[string]bool{
	"上页": true, "下页": true, "首页": true, "尾页": true, "末页": true,
	"上一页": true, "下一页": true, "...": true, "…": true,
}

// Processor runs the university ecosystem analysis over the raw store
type Processor struct {
	store  *storage.Storage
	logger arbor.ILogger
	dir    string
}

func New(store *storage.Storage, logger arbor.ILogger) *Processor {
	return &Processor{
		store:  store,
		logger: logger,
		dir:    store.ProcessedDir(Module),
	}
}

// FeedItem is one entry of feed.json
type FeedItem struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	PublishedAt string            `json:"published_at,omitempty"`
	SourceID    string            `json:"source_id"`
	SourceName  string            `json:"source_name"`
	Group       string            `json:"group,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	HasContent  bool              `json:"has_content"`
	Thumbnail   string            `json:"thumbnail,omitempty"`
	IsNew       bool              `json:"is_new"`
	Content     string            `json:"content,omitempty"`
	Images      []models.ImageRef `json:"images"`
}

// ResearchOutput is one entry of research_outputs.json
type ResearchOutput struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Date        string            `json:"date"`
	SourceID    string            `json:"source_id"`
	SourceName  string            `json:"source_name"`
	Group       string            `json:"group,omitempty"`
	Institution string            `json:"institution"`
	Type        string            `json:"type"`
	Influence   string            `json:"influence"`
	Field       string            `json:"field"`
	Authors     string            `json:"authors"`
	AIAnalysis  string            `json:"aiAnalysis"`
	Detail      string            `json:"detail"`
	MatchScore  int               `json:"matchScore"`
	Content     string            `json:"content,omitempty"`
	Images      []models.ImageRef `json:"images"`
}

// GroupSummary is one group row of overview.json
type GroupSummary struct {
	Group         string `json:"group"`
	GroupName     string `json:"group_name"`
	TotalArticles int    `json:"total_articles"`
	NewToday      int    `json:"new_today"`
	SourceCount   int    `json:"source_count"`
}

// Overview is the overview.json dashboard document
type Overview struct {
	GeneratedAt          string         `json:"generated_at"`
	TotalArticles        int            `json:"total_articles"`
	NewToday             int            `json:"new_today"`
	ActiveSourceCount    int            `json:"active_source_count"`
	Groups               []GroupSummary `json:"groups"`
	ResearchOutputsCount int            `json:"research_outputs_count"`
	ResearchTypeStats    map[string]int `json:"research_type_stats"`
}

// Process rebuilds overview.json, feed.json and research_outputs.json from
// all current valid university articles. A dry run computes the summary and
// writes nothing.
func (p *Processor) Process(opts intel.Options) (map[string]any, error) {
	articles := intel.CollectArticles(p.store, models.DimensionUniversities)

	valid := make([]intel.Article, 0, len(articles))
	for _, a := range articles {
		if isValidArticle(&a) {
			valid = append(valid, a)
		}
	}

	tracker := intel.LoadTracker(filepath.Join(p.dir, "_processed_hashes.json"))
	previously := tracker.Len()
	newCount := 0
	for i := range valid {
		a := &valid[i]
		if tracker.ShouldProcess(a.URLHash, a.ContentHash, opts.Force) {
			tracker.Mark(a.URLHash, a.ContentHash)
			newCount++
		}
	}
	if newCount > 0 && !opts.DryRun {
		if err := tracker.Save(); err != nil {
			return nil, err
		}
	}

	today := time.Now().UTC().Format("2006-01-02")

	feed := make([]FeedItem, 0, len(valid))
	var outputs []ResearchOutput
	typeCounts := map[string]int{TypePaper: 0, TypePatent: 0, TypeAward: 0}
	groupTotals := map[string]*GroupSummary{}
	groupSources := map[string]map[string]bool{}
	activeSources := map[string]bool{}
	newToday := 0

	for i := range valid {
		a := &valid[i]
		feed = append(feed, buildFeedItem(a))

		if c := ClassifyArticle(a); c != nil {
			outputs = append(outputs, buildResearchOutput(a, c))
			typeCounts[c.Type]++
		}

		group := a.Group
		if group == "" {
			group = "unknown"
		}
		entry := groupTotals[group]
		if entry == nil {
			entry = &GroupSummary{Group: group, GroupName: groupDisplayName(group)}
			groupTotals[group] = entry
			groupSources[group] = map[string]bool{}
		}
		entry.TotalArticles++
		groupSources[group][a.SourceID] = true
		activeSources[a.SourceID] = true
		if a.Date() == today {
			entry.NewToday++
			newToday++
		}
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return orEpoch(feed[i].PublishedAt) > orEpoch(feed[j].PublishedAt)
	})
	sort.SliceStable(outputs, func(i, j int) bool { return outputs[i].Date > outputs[j].Date })

	groups := make([]GroupSummary, 0, len(groupTotals))
	for group, entry := range groupTotals {
		entry.SourceCount = len(groupSources[group])
		groups = append(groups, *entry)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })

	overview := Overview{
		GeneratedAt:          time.Now().UTC().Format(time.RFC3339),
		TotalArticles:        len(articles),
		NewToday:             newToday,
		ActiveSourceCount:    len(activeSources),
		Groups:               groups,
		ResearchOutputsCount: len(outputs),
		ResearchTypeStats:    typeCounts,
	}

	if !opts.DryRun {
		if err := storage.WriteJSONAtomic(filepath.Join(p.dir, "overview.json"), overview); err != nil {
			return nil, err
		}
		if err := intel.SaveOutput(filepath.Join(p.dir, "feed.json"), feed, len(feed), nil); err != nil {
			return nil, err
		}
		if err := intel.SaveOutput(filepath.Join(p.dir, "research_outputs.json"), outputs, len(outputs), nil); err != nil {
			return nil, err
		}
	}

	p.logger.Info().
		Int("feed_items", len(feed)).
		Int("research_outputs", len(outputs)).
		Int("papers", typeCounts[TypePaper]).
		Int("patents", typeCounts[TypePatent]).
		Int("awards", typeCounts[TypeAward]).
		Bool("dry_run", opts.DryRun).
		Msg("University eco processing finished")

	return map[string]any{
		"unique":               len(valid),
		"new_processed":        newCount,
		"previously_processed": previously,
		"feed_items":           len(feed),
		"research_outputs":     len(outputs),
		"research_papers":      typeCounts[TypePaper],
		"research_patents":     typeCounts[TypePatent],
		"research_awards":      typeCounts[TypeAward],
	}, nil
}

// isValidArticle rejects pagination artifacts and junk entries
func isValidArticle(a *intel.Article) bool {
	title := strings.TrimSpace(a.Title)
	if len([]rune(title)) < 4 {
		return false
	}
	if junkTitles[title] || paginationRe.MatchString(title) {
		return false
	}
	return strings.HasPrefix(a.URL, "http")
}

func groupDisplayName(group string) string {
	if name, ok := groupNames[group]; ok {
		return name
	}
	return group
}

func articleImages(a *intel.Article) []models.ImageRef {
	images := []models.ImageRef{}
	raw, ok := a.Extra["images"]
	if !ok {
		return images
	}
	switch list := raw.(type) {
	case []models.ImageRef:
		return append(images, list...)
	case []any:
		for _, entry := range list {
			switch img := entry.(type) {
			case map[string]any:
				src, _ := img["src"].(string)
				alt, _ := img["alt"].(string)
				if src != "" {
					images = append(images, models.ImageRef{Src: src, Alt: alt})
				}
			case string:
				if img != "" {
					images = append(images, models.ImageRef{Src: img})
				}
			}
		}
	}
	return images
}

func buildFeedItem(a *intel.Article) FeedItem {
	images := articleImages(a)
	thumbnail := ""
	if len(images) > 0 {
		thumbnail = images[0].Src
	}
	return FeedItem{
		ID:          a.URLHash,
		Title:       a.Title,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
		SourceID:    a.SourceID,
		SourceName:  a.SourceName,
		Group:       a.Group,
		Tags:        a.Tags,
		HasContent:  a.Content != "",
		Thumbnail:   thumbnail,
		IsNew:       a.IsNew,
		Content:     a.Content,
		Images:      images,
	}
}

func buildResearchOutput(a *intel.Article, c *Classification) ResearchOutput {
	return ResearchOutput{
		ID:          a.URLHash,
		Title:       a.Title,
		URL:         a.URL,
		Date:        a.Date(),
		SourceID:    a.SourceID,
		SourceName:  a.SourceName,
		Group:       a.Group,
		Institution: c.Institution,
		Type:        c.Type,
		Influence:   c.Influence,
		Field:       c.Field,
		Authors:     c.Authors,
		AIAnalysis:  c.AIAnalysis,
		Detail:      c.Detail,
		MatchScore:  c.MatchScore,
		Content:     a.Content,
		Images:      articleImages(a),
	}
}

func orEpoch(date string) string {
	if date == "" {
		return "1970-01-01"
	}
	return date
}
