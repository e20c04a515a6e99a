package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/models"
)

// StateStore owns data/state/source_state.json, a single JSON map of
// source_id to SourceState. All mutation goes through Update under one
// in-process mutex; the file itself is replaced atomically.
type StateStore struct {
	path   string
	mu     sync.Mutex
	logger arbor.ILogger
}

// NewStateStore creates the source-state store rooted at dataDir
func NewStateStore(dataDir string, logger arbor.ILogger) *StateStore {
	return &StateStore{
		path:   filepath.Join(dataDir, "state", "source_state.json"),
		logger: logger,
	}
}

func (s *StateStore) load() map[string]*models.SourceState {
	states := make(map[string]*models.SourceState)
	err := ReadJSON(s.path, &states)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("Source state unreadable, starting fresh")
	}
	return states
}

// Get returns a copy of one source's state, or a zero state when unknown
func (s *StateStore) Get(sourceID string) models.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.load()[sourceID]; ok && state != nil {
		return *state
	}
	return models.SourceState{}
}

// All returns a snapshot of every source's state
func (s *StateStore) All() map[string]models.SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.SourceState)
	for id, state := range s.load() {
		if state != nil {
			out[id] = *state
		}
	}
	return out
}

// Update applies fn to one source's state under the store lock and persists
// the whole map atomically.
func (s *StateStore) Update(sourceID string, fn func(*models.SourceState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := s.load()
	state, ok := states[sourceID]
	if !ok || state == nil {
		state = &models.SourceState{}
		states[sourceID] = state
	}
	fn(state)

	return WriteJSONAtomic(s.path, states)
}

// RecordRun folds one crawl outcome into the source's health counters. A
// successful run resets consecutive_failures; failures grow it.
func (s *StateStore) RecordRun(sourceID string, status string, at time.Time) error {
	return s.Update(sourceID, func(state *models.SourceState) {
		t := at.UTC()
		state.LastCrawlAt = &t
		if status == models.CrawlStatusFailed {
			state.ConsecutiveFailures++
		} else {
			state.ConsecutiveFailures = 0
			state.LastSuccessAt = &t
		}
	})
}

// SetEnabledOverride toggles a source on or off at runtime without touching
// the catalog; nil clears the override.
func (s *StateStore) SetEnabledOverride(sourceID string, enabled *bool) error {
	return s.Update(sourceID, func(state *models.SourceState) {
		state.EnabledOverride = enabled
	})
}
