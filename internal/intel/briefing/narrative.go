package briefing

import (
	"context"
	"encoding/json"
	"strings"
)

// validModuleIDs is the closed set of frontend modules a link may target
var validModuleIDs = map[string]bool{
	"policy-intel":   true,
	"tech-frontier":  true,
	"talent-radar":   true,
	"university-eco": true,
	"smart-schedule": true,
}

// Segment is one element of a narrative paragraph. A segment is either
// plain connective text (ModuleID empty, serialized as a bare JSON string)
// or a link referencing an article in one of the frontend modules
// (serialized as an object).
type Segment struct {
	Text           string `json:"text"`
	ModuleID       string `json:"moduleId,omitempty"`
	Action         string `json:"action,omitempty"`
	URL            string `json:"url,omitempty"`
	ContentSnippet string `json:"contentSnippet,omitempty"`
	SourceName     string `json:"sourceName,omitempty"`
	ArticleID      string `json:"articleId,omitempty"`
}

// Paragraph is an ordered run of text and link segments
type Paragraph []Segment

// Narrative is the paragraphs-plus-summary half of a briefing, produced
// either by the oracle or by the rule fallback.
type Narrative struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	Summary    string      `json:"summary"`
}

// Generator produces a model-written narrative from the prepared article
// list and metric summary.
type Generator interface {
	GenerateNarrative(ctx context.Context, articleList, metricSummary string) (*Narrative, error)
}

func Plain(text string) Segment {
	return Segment{Text: text}
}

func (s Segment) IsLink() bool {
	return s.ModuleID != ""
}

// MarshalJSON serializes plain segments as bare strings and links as
// objects, matching the shape the frontend consumes.
func (s Segment) MarshalJSON() ([]byte, error) {
	if !s.IsLink() {
		return json.Marshal(s.Text)
	}
	type linkSegment Segment
	return json.Marshal(linkSegment(s))
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = Segment{Text: text}
		return nil
	}
	type linkSegment Segment
	var link linkSegment
	if err := json.Unmarshal(data, &link); err != nil {
		return err
	}
	*s = Segment(link)
	return nil
}

// MakeLink builds a link segment for an article, carrying enough context
// for the frontend to render a preview without another request.
func MakeLink(title, moduleID, action, url, content, sourceName string) Segment {
	link := Segment{
		Text:     truncateRunes(title, 60),
		ModuleID: moduleID,
		Action:   action,
		URL:      url,
	}
	if content = strings.TrimSpace(content); content != "" {
		link.ContentSnippet = truncateRunes(content, 200)
	}
	link.SourceName = sourceName
	return link
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Normalize validates a model-produced narrative and hydrates link
// segments with article metadata from the index. Links with an unknown
// moduleId degrade to plain text, empty links are dropped, and the
// articleId used for lookup is cleared from the output.
func (n *Narrative) Normalize(index map[string]ArticleMeta) *Narrative {
	const emptySummary = "今日暂无重要信息更新。"

	cleaned := make([]Paragraph, 0, len(n.Paragraphs))
	for _, paragraph := range n.Paragraphs {
		segments := make(Paragraph, 0, len(paragraph))
		for _, segment := range paragraph {
			if !segment.IsLink() {
				if segment.Text != "" {
					segments = append(segments, Plain(segment.Text))
				}
				continue
			}
			if segment.Text == "" {
				continue
			}
			if !validModuleIDs[segment.ModuleID] {
				segments = append(segments, Plain(segment.Text))
				continue
			}
			if shortID := strings.TrimPrefix(segment.ArticleID, "#"); shortID != "" {
				if meta, ok := index[shortID]; ok {
					if meta.URL != "" {
						segment.URL = meta.URL
					}
					if meta.ContentSnippet != "" {
						segment.ContentSnippet = meta.ContentSnippet
					}
					if meta.SourceName != "" {
						segment.SourceName = meta.SourceName
					}
				}
			}
			segment.ArticleID = ""
			segments = append(segments, segment)
		}
		if len(segments) > 0 {
			cleaned = append(cleaned, segments)
		}
	}

	summary := n.Summary
	if len(cleaned) == 0 {
		if summary == "" {
			summary = emptySummary
		}
		cleaned = []Paragraph{{Plain(summary)}}
	}
	return &Narrative{Paragraphs: cleaned, Summary: summary}
}
