package storage

import (
	"path/filepath"

	"github.com/ternarybob/arbor"
)

// Storage bundles the file-backed stores sharing one data directory
type Storage struct {
	DataDir   string
	Artifacts *ArtifactStore
	State     *StateStore
	RunLogs   *RunLogStore
	Snapshots *SnapshotStore
}

// New creates all stores rooted at dataDir
func New(dataDir string, logger arbor.ILogger) *Storage {
	return &Storage{
		DataDir:   dataDir,
		Artifacts: NewArtifactStore(dataDir, logger),
		State:     NewStateStore(dataDir, logger),
		RunLogs:   NewRunLogStore(dataDir, logger),
		Snapshots: NewSnapshotStore(dataDir, logger),
	}
}

// ProcessedDir returns the output directory for one pipeline module,
// e.g. data/processed/policy
func (s *Storage) ProcessedDir(module string) string {
	return filepath.Join(s.DataDir, "processed", module)
}

// PipelineStatusPath is where the orchestrator writes its run summary
func (s *Storage) PipelineStatusPath() string {
	return filepath.Join(s.DataDir, "processed", "pipeline_status.json")
}

// IndexPath is the frontend-facing data index
func (s *Storage) IndexPath() string {
	return filepath.Join(s.DataDir, "index.json")
}

// AnnotationsPath holds read-only article flags maintained by the read API
func (s *Storage) AnnotationsPath() string {
	return filepath.Join(s.DataDir, "state", "article_annotations.json")
}
