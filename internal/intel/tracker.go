package intel

import (
	"os"
	"sort"
	"time"

	"github.com/ternarybob/argus/internal/storage"
)

// HashTracker backs incremental processing. It remembers, per url_hash, the
// content_hash last processed; an article is reprocessed when its content
// changed, not merely because it was seen before.
type HashTracker struct {
	path   string
	hashes map[string]string
}

type trackerFile struct {
	Hashes  map[string]string `json:"hashes"`
	Order   []string          `json:"order,omitempty"`
	LastRun string            `json:"last_run,omitempty"`
}

// LoadTracker reads the tracker file; a missing or corrupt file yields an
// empty tracker so a damaged state never blocks processing.
func LoadTracker(path string) *HashTracker {
	t := &HashTracker{path: path, hashes: map[string]string{}}
	var file trackerFile
	if err := storage.ReadJSON(path, &file); err == nil && file.Hashes != nil {
		t.hashes = file.Hashes
	}
	return t
}

// ShouldProcess reports whether the article needs (re)processing
func (t *HashTracker) ShouldProcess(urlHash, contentHash string, force bool) bool {
	if force {
		return true
	}
	prev, seen := t.hashes[urlHash]
	if !seen {
		return true
	}
	return prev != contentHash
}

// Mark records the article as processed at its current content
func (t *HashTracker) Mark(urlHash, contentHash string) {
	t.hashes[urlHash] = contentHash
}

// Len returns the number of tracked articles
func (t *HashTracker) Len() int { return len(t.hashes) }

// Save writes the tracker atomically with a stable key order
func (t *HashTracker) Save() error {
	order := make([]string, 0, len(t.hashes))
	for h := range t.hashes {
		order = append(order, h)
	}
	sort.Strings(order)
	return storage.WriteJSONAtomic(t.path, trackerFile{
		Hashes:  t.hashes,
		Order:   order,
		LastRun: time.Now().UTC().Format(time.RFC3339),
	})
}

// Reset removes the tracker file; the next run reprocesses everything
func (t *HashTracker) Reset() error {
	t.hashes = map[string]string{}
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
