package intel

import "context"

// Enrichment tiers recorded on processed articles. Rules enrichment always
// runs; the LLM tier upgrades high-scoring items when the oracle is ready.
const (
	TierRules = "rules"
	TierLLM   = "llm"
)

// Annotation is the model-generated layer on top of rules enrichment. The
// policy and tech modules use insight, detail and signals; the personnel
// module additionally reads the grouping and suggestion fields.
type Annotation struct {
	AIInsight        string   `json:"aiInsight,omitempty"`
	Detail           string   `json:"detail,omitempty"`
	Signals          []string `json:"signals,omitempty"`
	Relevance        int      `json:"relevance,omitempty"`
	Importance       string   `json:"importance,omitempty"`
	Group            string   `json:"group,omitempty"`
	Note             string   `json:"note,omitempty"`
	ActionSuggestion string   `json:"actionSuggestion,omitempty"`
	Background       string   `json:"background,omitempty"`
}

// Annotator produces the LLM annotation for one article. module names the
// consuming feed (policy, personnel, tech_frontier); fields carries the rules
// enrichment so the model sees what the heuristics concluded.
type Annotator interface {
	Annotate(ctx context.Context, module string, article Article, fields map[string]any) (*Annotation, error)
}
