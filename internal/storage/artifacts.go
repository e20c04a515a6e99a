package storage

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/models"
)

// ArtifactStore persists one latest.json per source under
// data/raw/{dimension}/{group?}/{source_id}/. Each write overwrites the
// previous artifact; the delta lives in the per-item is_new flags.
type ArtifactStore struct {
	baseDir string
	logger  arbor.ILogger
}

// NewArtifactStore creates the raw-artifact store rooted at dataDir
func NewArtifactStore(dataDir string, logger arbor.ILogger) *ArtifactStore {
	return &ArtifactStore{
		baseDir: filepath.Join(dataDir, "raw"),
		logger:  logger,
	}
}

// ArtifactPath builds the per-source directory; group is omitted when empty
func (s *ArtifactStore) ArtifactPath(dimension, group, sourceID string) string {
	if group != "" {
		return filepath.Join(s.baseDir, dimension, group, sourceID, "latest.json")
	}
	return filepath.Join(s.baseDir, dimension, sourceID, "latest.json")
}

// Load returns the current artifact for a source, or nil when none exists
func (s *ArtifactStore) Load(dimension, group, sourceID string) (*models.RawArtifact, error) {
	var artifact models.RawArtifact
	err := ReadJSON(s.ArtifactPath(dimension, group, sourceID), &artifact)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &artifact, nil
}

// Write marks each item new or seen against the prior artifact and
// atomically replaces latest.json. Items are mutated in place so the caller
// sees the is_new flags too. With no prior artifact every item is new.
func (s *ArtifactStore) Write(src *models.SourceDefinition, items []models.CrawledItem, crawledAt time.Time) (*models.RawArtifact, error) {
	previous, err := s.Load(src.Dimension, src.Group, src.ID)
	if err != nil {
		// Corrupt prior artifact: treat as absent, the write will replace it
		s.logger.Warn().
			Str("source_id", src.ID).
			Err(err).
			Msg("Prior artifact unreadable, treating all items as new")
		previous = nil
	}

	var prevHashes map[string]bool
	var previousCrawledAt *time.Time
	if previous != nil {
		prevHashes = previous.URLHashes()
		t := previous.CrawledAt
		previousCrawledAt = &t
	}

	newCount := 0
	for i := range items {
		items[i].IsNew = prevHashes == nil || !prevHashes[items[i].URLHash]
		if items[i].IsNew {
			newCount++
		}
	}

	artifact := &models.RawArtifact{
		SourceID:          src.ID,
		Dimension:         src.Dimension,
		Group:             src.Group,
		SourceName:        src.Name,
		CrawledAt:         crawledAt.UTC(),
		PreviousCrawledAt: previousCrawledAt,
		ItemCount:         len(items),
		NewItemCount:      newCount,
		Items:             items,
	}
	if artifact.Items == nil {
		artifact.Items = []models.CrawledItem{}
	}

	path := s.ArtifactPath(src.Dimension, src.Group, src.ID)
	if err := WriteJSONAtomic(path, artifact); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("source_id", src.ID).
		Int("items", len(items)).
		Int("new", newCount).
		Msg("Raw artifact written")
	return artifact, nil
}

// ListDimension returns all artifacts under one dimension directory,
// tolerating missing directories and unreadable files.
func (s *ArtifactStore) ListDimension(dimension string) []*models.RawArtifact {
	var artifacts []*models.RawArtifact
	root := filepath.Join(s.baseDir, dimension)
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "latest.json" {
			return nil
		}
		var artifact models.RawArtifact
		if readErr := ReadJSON(path, &artifact); readErr != nil {
			s.logger.Warn().Str("path", path).Err(readErr).Msg("Skipping unreadable artifact")
			return nil
		}
		artifacts = append(artifacts, &artifact)
		return nil
	})
	return artifacts
}

// ListAll walks every dimension under data/raw
func (s *ArtifactStore) ListAll() []*models.RawArtifact {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil
	}
	var artifacts []*models.RawArtifact
	for _, entry := range entries {
		if entry.IsDir() {
			artifacts = append(artifacts, s.ListDimension(entry.Name())...)
		}
	}
	return artifacts
}

// Empty reports whether no raw artifacts exist yet (first-run priming check)
func (s *ArtifactStore) Empty() bool {
	found := false
	filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && d.Name() == "latest.json" {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return !found
}
