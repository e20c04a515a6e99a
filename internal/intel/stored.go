package intel

import "github.com/ternarybob/argus/internal/models"

// StoredArticle is the compact article copy kept inside enriched cache files.
// Feed rebuilds read only these, so the raw artifacts can roll over without
// losing processed history.
type StoredArticle struct {
	URLHash     string   `json:"url_hash"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at,omitempty"`
	SourceID    string   `json:"source_id"`
	SourceName  string   `json:"source_name"`
	Dimension   string   `json:"dimension"`
	Group       string   `json:"group,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Content     string   `json:"content,omitempty"`
}

// Stored projects the article onto the cache shape
func (a *Article) Stored() StoredArticle {
	return StoredArticle{
		URLHash:     a.URLHash,
		Title:       a.Title,
		URL:         a.URL,
		PublishedAt: a.PublishedAt,
		SourceID:    a.SourceID,
		SourceName:  a.SourceName,
		Dimension:   a.Dimension,
		Group:       a.Group,
		Tags:        a.Tags,
		Content:     a.Content,
	}
}

// AsArticle lifts a stored copy back into the processor view
func (sa StoredArticle) AsArticle() Article {
	return Article{
		CrawledItem: models.CrawledItem{
			URLHash:     sa.URLHash,
			Title:       sa.Title,
			URL:         sa.URL,
			PublishedAt: sa.PublishedAt,
			SourceID:    sa.SourceID,
			Dimension:   sa.Dimension,
			Tags:        sa.Tags,
			Content:     sa.Content,
		},
		SourceName: sa.SourceName,
		Group:      sa.Group,
	}
}
