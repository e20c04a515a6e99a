package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/models"
	"github.com/ternarybob/argus/internal/storage"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Oracle.Enabled = false
	return cfg
}

func testSources() []models.SourceDefinition {
	return []models.SourceDefinition{
		{
			ID: "moe_policy", Name: "教育部政策", Dimension: models.DimensionNationalPolicy,
			Group: "ministry", URL: "http://example.gov/a", Strategy: models.StrategyStatic,
			Schedule: models.ScheduleDaily, Enabled: true,
		},
		{
			ID: "disabled_src", Name: "停用源", Dimension: models.DimensionTechnology,
			URL: "http://example.gov/b", Strategy: models.StrategyStatic,
			Schedule: models.ScheduleDaily, Enabled: false,
		},
	}
}

// Run with no enabled sources and no oracle: crawl is a no-op, processors
// run on the empty store, enrichment and briefing stages are skipped, the
// index still generates.
func TestRunWithoutOracleSkipsEnrichment(t *testing.T) {
	cfg := testConfig(t)
	store := storage.New(cfg.Storage.DataDir, common.GetLogger())

	sources := testSources()
	sources[0].Enabled = false

	p := New(cfg, store, sources, nil, nil, nil, nil, common.GetLogger())
	result := p.Run(context.Background())

	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, models.PipelineStatusSuccess, result.Status)

	byName := map[string]models.StageResult{}
	for _, stage := range result.Stages {
		byName[stage.Name] = stage
	}

	for _, name := range []string{
		"crawl_all", "process_policy", "process_personnel",
		"process_university_eco", "process_tech_frontier",
		"generate_index",
	} {
		stage, ok := byName[name]
		require.True(t, ok, name)
		assert.Equal(t, models.StageStatusSuccess, stage.Status, name)
	}
	// No oracle skips the enrich stages, an empty store skips the briefing
	for _, name := range []string{
		"enrich_policy_llm", "enrich_personnel_llm", "enrich_tech_frontier_llm",
		"generate_briefing",
	} {
		stage, ok := byName[name]
		require.True(t, ok, name)
		assert.Equal(t, models.StageStatusSkipped, stage.Status, name)
		assert.Equal(t, true, stage.Summary["skipped"])
	}

	// The run is persisted for the status endpoint
	var persisted models.PipelineResult
	require.NoError(t, storage.ReadJSON(store.PipelineStatusPath(), &persisted))
	assert.Equal(t, result.RunID, persisted.RunID)
	assert.Len(t, persisted.Stages, len(result.Stages))
}

func TestSourceEnabledOverride(t *testing.T) {
	cfg := testConfig(t)
	store := storage.New(cfg.Storage.DataDir, common.GetLogger())
	sources := testSources()

	p := New(cfg, store, sources, nil, nil, nil, nil, common.GetLogger())
	assert.True(t, p.sourceEnabled(&sources[0]))
	assert.False(t, p.sourceEnabled(&sources[1]))

	off := false
	require.NoError(t, store.State.SetEnabledOverride("moe_policy", &off))
	assert.False(t, p.sourceEnabled(&sources[0]), "state override wins over catalog flag")

	on := true
	require.NoError(t, store.State.SetEnabledOverride("disabled_src", &on))
	assert.True(t, p.sourceEnabled(&sources[1]))
}

func TestGenerateIndexShape(t *testing.T) {
	cfg := testConfig(t)
	store := storage.New(cfg.Storage.DataDir, common.GetLogger())
	sources := testSources()

	src := &sources[0]
	items := []models.CrawledItem{{
		Title: "政策一", URL: "http://example.gov/a/1",
		URLHash: common.URLHash("http://example.gov/a/1"), SourceID: src.ID,
	}}
	_, err := store.Artifacts.Write(src, items, time.Now())
	require.NoError(t, err)

	p := New(cfg, store, sources, nil, nil, nil, nil, common.GetLogger())
	summary, err := p.GenerateIndex()
	require.NoError(t, err)

	assert.Equal(t, 2, summary["total_sources"])
	assert.Equal(t, 1, summary["total_enabled"])
	assert.Equal(t, 1, summary["total_articles"])

	var index Index
	require.NoError(t, storage.ReadJSON(store.IndexPath(), &index))
	dim, ok := index.Dimensions[models.DimensionNationalPolicy]
	require.True(t, ok)
	assert.Equal(t, "对国家", dim.Name)
	require.Len(t, dim.Sources, 1)
	assert.Equal(t, "moe_policy", dim.Sources[0].SourceID)
	assert.Equal(t, 1, dim.Sources[0].ArticleCount)
	assert.NotContains(t, dim.Sources[0].DataPath, "\\", "paths are slash-normalized")
}
