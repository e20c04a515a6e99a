package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/models"
)

// maxSnapshotHistory bounds the per-source snapshot list; the full content
// text is retained only on the newest record for diffing.
const maxSnapshotHistory = 20

// SnapshotStore maintains data/state/snapshots/{source_id}.json for the
// snapshot strategy's change detection.
type SnapshotStore struct {
	baseDir string
	logger  arbor.ILogger
	mu      sync.Mutex
}

// NewSnapshotStore creates the snapshot store rooted at dataDir
func NewSnapshotStore(dataDir string, logger arbor.ILogger) *SnapshotStore {
	return &SnapshotStore{
		baseDir: filepath.Join(dataDir, "state", "snapshots"),
		logger:  logger,
	}
}

func (s *SnapshotStore) path(sourceID string) string {
	return filepath.Join(s.baseDir, sourceID+".json")
}

// Latest returns the most recent snapshot for a source, or nil
func (s *SnapshotStore) Latest(sourceID string) (*models.SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(sourceID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	latest := records[len(records)-1]
	return &latest, nil
}

// Append stores a new snapshot record. Older records lose their content
// text; only the newest needs it for the next diff.
func (s *SnapshotStore) Append(sourceID string, record models.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(sourceID)
	if err != nil {
		s.logger.Warn().Str("source_id", sourceID).Err(err).Msg("Snapshot history unreadable, starting fresh")
		records = nil
	}
	for i := range records {
		records[i].ContentText = ""
	}
	records = append(records, record)
	if len(records) > maxSnapshotHistory {
		records = records[len(records)-maxSnapshotHistory:]
	}
	return WriteJSONAtomic(s.path(sourceID), records)
}

// History returns the snapshot list, oldest first
func (s *SnapshotStore) History(sourceID string) []models.SnapshotRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(sourceID)
	if err != nil {
		return nil
	}
	return records
}

func (s *SnapshotStore) read(sourceID string) ([]models.SnapshotRecord, error) {
	var records []models.SnapshotRecord
	err := ReadJSON(s.path(sourceID), &records)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}
