package pipeline

import (
	"path/filepath"
	"time"

	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

// dimensionNames are the frontend display labels for the data index
var dimensionNames = map[string]string{
	models.DimensionNationalPolicy: "对国家",
	models.DimensionBeijingPolicy:  "对北京",
	models.DimensionTechnology:     "对技术",
	models.DimensionTalent:         "对人才",
	models.DimensionIndustry:       "对产业",
	models.DimensionSentiment:      "对学院舆情",
	models.DimensionUniversities:   "对高校",
	models.DimensionEvents:         "对日程",
	models.DimensionPersonnel:      "对人事",
}

// IndexFile is one raw artifact entry of an index source
type IndexFile struct {
	Date         string `json:"date"`
	ArticleCount int    `json:"article_count"`
}

// IndexSource maps one catalog source to its raw data on disk
type IndexSource struct {
	SourceID     string      `json:"source_id"`
	SourceName   string      `json:"source_name"`
	Group        string      `json:"group"`
	FetchMethod  string      `json:"fetch_method"`
	Enabled      bool        `json:"enabled"`
	URL          string      `json:"url"`
	Schedule     string      `json:"schedule"`
	DataPath     string      `json:"data_path"`
	Files        []IndexFile `json:"files"`
	ArticleCount int         `json:"article_count"`
}

// IndexDimension aggregates one dimension of the index
type IndexDimension struct {
	Name         string        `json:"name"`
	SourceCount  int           `json:"source_count"`
	EnabledCount int           `json:"enabled_count"`
	ArticleCount int           `json:"article_count"`
	Sources      []IndexSource `json:"sources"`
}

// Index is the data/index.json document mapping the catalog to crawled data
type Index struct {
	GeneratedAt   string                     `json:"generated_at"`
	TotalSources  int                        `json:"total_sources"`
	TotalEnabled  int                        `json:"total_enabled"`
	TotalArticles int                        `json:"total_articles"`
	Dimensions    map[string]*IndexDimension `json:"dimensions"`
}

// GenerateIndex rebuilds data/index.json from the catalog and the raw
// artifact store. Catalog order is preserved within each dimension.
func (p *Pipeline) GenerateIndex() (map[string]any, error) {
	index := Index{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Dimensions:  map[string]*IndexDimension{},
	}

	for i := range p.sources {
		src := &p.sources[i]
		enabled := p.sourceEnabled(src)

		dim := index.Dimensions[src.Dimension]
		if dim == nil {
			name := dimensionNames[src.Dimension]
			if name == "" {
				name = src.Dimension
			}
			dim = &IndexDimension{Name: name}
			index.Dimensions[src.Dimension] = dim
		}

		dataPath, err := filepath.Rel(p.store.DataDir, p.store.Artifacts.ArtifactPath(src.Dimension, src.Group, src.ID))
		if err != nil {
			dataPath = p.store.Artifacts.ArtifactPath(src.Dimension, src.Group, src.ID)
		}

		entry := IndexSource{
			SourceID:    src.ID,
			SourceName:  src.Name,
			Group:       src.Group,
			FetchMethod: src.Strategy,
			Enabled:     enabled,
			URL:         src.URL,
			Schedule:    src.Schedule,
			DataPath:    filepath.ToSlash(dataPath),
			Files:       []IndexFile{},
		}

		artifact, err := p.store.Artifacts.Load(src.Dimension, src.Group, src.ID)
		if err != nil {
			p.logger.Warn().Str("source_id", src.ID).Err(err).Msg("Skipping unreadable artifact in index")
		}
		if artifact != nil {
			entry.ArticleCount = artifact.ItemCount
			entry.Files = append(entry.Files, IndexFile{
				Date:         artifact.CrawledAt.Format("2006-01-02"),
				ArticleCount: artifact.ItemCount,
			})
		}

		dim.Sources = append(dim.Sources, entry)
		dim.SourceCount++
		dim.ArticleCount += entry.ArticleCount
		if enabled {
			dim.EnabledCount++
			index.TotalEnabled++
		}
		index.TotalSources++
		index.TotalArticles += entry.ArticleCount
	}

	if err := storage.WriteJSONAtomic(p.store.IndexPath(), index); err != nil {
		return nil, err
	}

	return map[string]any{
		"total_sources":  index.TotalSources,
		"total_enabled":  index.TotalEnabled,
		"total_articles": index.TotalArticles,
		"dimensions":     len(index.Dimensions),
	}, nil
}
