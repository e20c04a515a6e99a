package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/argus/internal/models"
)

var validate = validator.New()

// LoadCatalogs reads every YAML catalog in dir and returns the merged source
// list. Each file carries one dimension which its sources inherit unless
// they declare their own (the twitter catalog mixes dimensions per source).
// default_keyword_filter fills in sources without an explicit filter.
func LoadCatalogs(dir string) ([]models.SourceDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog dir unreadable: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)

	var (
		sources []models.SourceDefinition
		seen    = map[string]string{}
	)
	for _, file := range files {
		catalog, err := loadCatalogFile(file)
		if err != nil {
			return nil, err
		}
		for _, src := range catalog {
			if prev, dup := seen[src.ID]; dup {
				return nil, fmt.Errorf("duplicate source id %q in %s (first seen in %s)", src.ID, file, prev)
			}
			seen[src.ID] = file
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func loadCatalogFile(path string) ([]models.SourceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s unreadable: %w", path, err)
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("catalog %s malformed: %w", path, err)
	}

	sources := make([]models.SourceDefinition, 0, len(catalog.Sources))
	for _, src := range catalog.Sources {
		if src.Dimension == "" {
			src.Dimension = catalog.Dimension
		}
		if len(src.KeywordFilter) == 0 && len(catalog.DefaultKeywordFilter) > 0 {
			src.KeywordFilter = append([]string(nil), catalog.DefaultKeywordFilter...)
		}
		if src.Schedule == "" {
			src.Schedule = models.ScheduleDaily
		}

		if err := validate.Struct(&src); err != nil {
			return nil, fmt.Errorf("catalog %s: source %s invalid: %w", path, src.ID, err)
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
