package server

import (
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ternarybob/argus/internal/intel/personnel"
	"github.com/ternarybob/argus/internal/intel/policy"
	"github.com/ternarybob/argus/internal/intel/techfrontier"
	"github.com/ternarybob/argus/internal/intel/universityeco"
	"github.com/ternarybob/argus/internal/storage"
)

// intelDocument is the common processed-output envelope
type intelDocument struct {
	GeneratedAt string           `json:"generated_at"`
	ItemCount   int              `json:"item_count"`
	Items       []map[string]any `json:"items"`
}

// loadIntelDoc reads one processed file; missing files yield an empty
// document so the API stays up before the first pipeline run.
func (s *Server) loadIntelDoc(module, file string) intelDocument {
	var doc intelDocument
	path := filepath.Join(s.store.ProcessedDir(module), file)
	if err := storage.ReadJSON(path, &doc); err != nil {
		return intelDocument{Items: []map[string]any{}}
	}
	if doc.Items == nil {
		doc.Items = []map[string]any{}
	}
	return doc
}

func itemString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func itemInt(item map[string]any, key string) int {
	switch v := item[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// foldName lowercases and strips all whitespace so "教育部 政策文件" and
// "教育部政策文件" compare equal
func foldName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// matchesSourceFilter applies the source-filter quadruple: exact ID
// (single or comma list) and whitespace-insensitive substring name
// (single or comma list).
func matchesSourceFilter(item map[string]any, q map[string]string) bool {
	sourceID := itemString(item, "source_id", "sourceId", "id")
	sourceName := foldName(itemString(item, "source_name", "sourceName", "source"))

	if want := q["source_id"]; want != "" && sourceID != want {
		return false
	}
	if want := q["source_ids"]; want != "" {
		found := false
		for _, id := range strings.Split(want, ",") {
			if sourceID == strings.TrimSpace(id) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if want := foldName(q["source_name"]); want != "" && !strings.Contains(sourceName, want) {
		return false
	}
	if want := q["source_names"]; want != "" {
		found := false
		for _, name := range strings.Split(want, ",") {
			name = foldName(name)
			if name != "" && strings.Contains(sourceName, name) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sourceQuadruple(r *http.Request) map[string]string {
	q := r.URL.Query()
	return map[string]string{
		"source_id":    q.Get("source_id"),
		"source_ids":   q.Get("source_ids"),
		"source_name":  q.Get("source_name"),
		"source_names": q.Get("source_names"),
	}
}

func matchesKeyword(item map[string]any, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	for _, key := range []string{"title", "summary", "source", "source_name", "name"} {
		if v, ok := item[key].(string); ok && strings.Contains(strings.ToLower(v), keyword) {
			return true
		}
	}
	if tags, ok := item["tags"].([]any); ok {
		for _, tag := range tags {
			if t, ok := tag.(string); ok && strings.Contains(strings.ToLower(t), keyword) {
				return true
			}
		}
	}
	return false
}

// serveFiltered paginates the filtered items in the standard envelope
func (s *Server) serveFiltered(w http.ResponseWriter, r *http.Request, doc intelDocument, keep func(map[string]any) bool) {
	items := make([]map[string]any, 0, len(doc.Items))
	for _, item := range doc.Items {
		if keep == nil || keep(item) {
			items = append(items, item)
		}
	}

	total := len(items)
	offset := intQuery(r, "offset", 0)
	limit := intQuery(r, "limit", 50)
	if offset >= len(items) {
		items = []map[string]any{}
	} else {
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": doc.GeneratedAt,
		"item_count":   total,
		"items":        items,
	})
}

func (s *Server) handlePolicyFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quad := sourceQuadruple(r)
	minScore := intQuery(r, "min_match_score", 0)

	doc := s.loadIntelDoc(policy.Module, "feed.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if category := q.Get("category"); category != "" && itemString(item, "category") != category {
			return false
		}
		if importance := q.Get("importance"); importance != "" && itemString(item, "importance") != importance {
			return false
		}
		if itemInt(item, "matchScore") < minScore {
			return false
		}
		return matchesKeyword(item, q.Get("keyword")) && matchesSourceFilter(item, quad)
	})
}

func (s *Server) handlePolicyOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minScore := intQuery(r, "min_match_score", 0)

	doc := s.loadIntelDoc(policy.Module, "opportunities.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if status := q.Get("status"); status != "" && itemString(item, "status") != status {
			return false
		}
		return itemInt(item, "matchScore") >= minScore
	})
}

func (s *Server) handlePolicyStats(w http.ResponseWriter, r *http.Request) {
	feed := s.loadIntelDoc(policy.Module, "feed.json")
	opps := s.loadIntelDoc(policy.Module, "opportunities.json")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_feed_items":    feed.ItemCount,
		"total_opportunities": opps.ItemCount,
		"generated_at":        feed.GeneratedAt,
	})
}

func (s *Server) handlePersonnelFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quad := sourceQuadruple(r)

	doc := s.loadIntelDoc(personnel.Module, "feed.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if importance := q.Get("importance"); importance != "" && itemString(item, "importance") != importance {
			return false
		}
		return matchesKeyword(item, q.Get("keyword")) && matchesSourceFilter(item, quad)
	})
}

func (s *Server) handlePersonnelChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doc := s.loadIntelDoc(personnel.Module, "changes.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if action := q.Get("action"); action != "" && itemString(item, "action") != action {
			return false
		}
		if department := q.Get("department"); department != "" && itemString(item, "department") != department {
			return false
		}
		return matchesKeyword(item, q.Get("keyword"))
	})
}

func (s *Server) handlePersonnelEnriched(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")

	var doc struct {
		GeneratedAt string           `json:"generated_at"`
		TotalCount  int              `json:"total_count"`
		ActionCount int              `json:"action_count"`
		WatchCount  int              `json:"watch_count"`
		Items       []map[string]any `json:"items"`
	}
	path := filepath.Join(s.store.ProcessedDir(personnel.Module), "enriched_feed.json")
	if err := storage.ReadJSON(path, &doc); err != nil {
		doc.Items = []map[string]any{}
	}

	items := doc.Items
	if group != "" {
		items = items[:0:0]
		for _, item := range doc.Items {
			if itemString(item, "group") == group {
				items = append(items, item)
			}
		}
	}
	if items == nil {
		items = []map[string]any{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": doc.GeneratedAt,
		"total_count":  doc.TotalCount,
		"action_count": doc.ActionCount,
		"watch_count":  doc.WatchCount,
		"item_count":   len(items),
		"items":        items,
	})
}

func (s *Server) handleFrontierTopics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doc := s.loadIntelDoc(techfrontier.Module, "topics.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if trend := q.Get("heat_trend"); trend != "" && itemString(item, "heatTrend") != trend {
			return false
		}
		if gap := q.Get("gap_level"); gap != "" && itemString(item, "gapLevel") != gap {
			return false
		}
		return true
	})
}

func (s *Server) handleFrontierOpportunities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doc := s.loadIntelDoc(techfrontier.Module, "opportunities.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if priority := q.Get("priority"); priority != "" && itemString(item, "priority") != priority {
			return false
		}
		if kind := q.Get("type"); kind != "" && itemString(item, "type") != kind {
			return false
		}
		return true
	})
}

func (s *Server) handleFrontierStats(w http.ResponseWriter, r *http.Request) {
	var stats map[string]any
	path := filepath.Join(s.store.ProcessedDir(techfrontier.Module), "stats.json")
	if err := storage.ReadJSON(path, &stats); err != nil {
		stats = map[string]any{}
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleUniversityOverview(w http.ResponseWriter, r *http.Request) {
	var overview map[string]any
	path := filepath.Join(s.store.ProcessedDir(universityeco.Module), "overview.json")
	if err := storage.ReadJSON(path, &overview); err != nil {
		overview = map[string]any{}
	}
	s.writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleUniversityFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quad := sourceQuadruple(r)

	doc := s.loadIntelDoc(universityeco.Module, "feed.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if group := q.Get("group"); group != "" && itemString(item, "group") != group {
			return false
		}
		return matchesKeyword(item, q.Get("keyword")) && matchesSourceFilter(item, quad)
	})
}

func (s *Server) handleUniversityResearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	doc := s.loadIntelDoc(universityeco.Module, "research_outputs.json")
	s.serveFiltered(w, r, doc, func(item map[string]any) bool {
		if kind := q.Get("type"); kind != "" && itemString(item, "type") != kind {
			return false
		}
		if influence := q.Get("influence"); influence != "" && itemString(item, "influence") != influence {
			return false
		}
		return true
	})
}
