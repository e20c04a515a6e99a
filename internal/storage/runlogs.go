package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/models"
)

// maxRunLogs caps each per-source crawl log; the oldest entries are trimmed
const maxRunLogs = 100

// RunLogStore maintains data/logs/{source_id}/crawl_logs.json, a bounded
// JSON array with the newest entry last. A per-source mutex serializes
// appends; the crawl path is the single writer.
type RunLogStore struct {
	baseDir string
	logger  arbor.ILogger
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewRunLogStore creates the run-log store rooted at dataDir
func NewRunLogStore(dataDir string, logger arbor.ILogger) *RunLogStore {
	return &RunLogStore{
		baseDir: filepath.Join(dataDir, "logs"),
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *RunLogStore) lockFor(sourceID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sourceID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sourceID] = lock
	}
	return lock
}

func (s *RunLogStore) path(sourceID string) string {
	return filepath.Join(s.baseDir, sourceID, "crawl_logs.json")
}

// Append adds one run record, trimming to the newest maxRunLogs entries
func (s *RunLogStore) Append(sourceID string, entry models.RunLog) error {
	lock := s.lockFor(sourceID)
	lock.Lock()
	defer lock.Unlock()

	logs := s.read(sourceID)
	logs = append(logs, entry)
	if len(logs) > maxRunLogs {
		logs = logs[len(logs)-maxRunLogs:]
	}
	return WriteJSONAtomic(s.path(sourceID), logs)
}

// List returns the run log, newest last; missing file means empty history
func (s *RunLogStore) List(sourceID string) []models.RunLog {
	lock := s.lockFor(sourceID)
	lock.Lock()
	defer lock.Unlock()
	return s.read(sourceID)
}

func (s *RunLogStore) read(sourceID string) []models.RunLog {
	var logs []models.RunLog
	err := ReadJSON(s.path(sourceID), &logs)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("source_id", sourceID).Err(err).Msg("Run log unreadable, starting fresh")
		return nil
	}
	return logs
}
