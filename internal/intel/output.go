package intel

import (
	"time"

	"github.com/ternarybob/argus/internal/storage"
)

// SaveOutput writes a processor output file in the standard envelope:
// generated_at, item_count, items, plus any module-specific extra fields.
func SaveOutput(path string, items any, itemCount int, extra map[string]any) error {
	doc := map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"item_count":   itemCount,
		"items":        items,
	}
	for k, v := range extra {
		doc[k] = v
	}
	return storage.WriteJSONAtomic(path, doc)
}
