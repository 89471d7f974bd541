package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/model"
	"github.com/sells-group/vendor-pipeline/internal/store"
)

// withConfig swaps the package config for the duration of a test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "cli.db")},
		Pipeline: config.PipelineConfig{TimelineMode: config.TimelineModeSynthetic},
	})

	st, err := openStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	_, ok := st.(*store.SQLiteStore)
	assert.True(t, ok)

	task, err := st.CreateTask(context.Background(), "cli", "Reconcile invoices")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, task.Status)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestOpenStore_PostgresRequiresURL(t *testing.T) {
	withConfig(t, &config.Config{
		Store:    config.StoreConfig{Driver: "postgres"},
		Pipeline: config.PipelineConfig{TimelineMode: config.TimelineModeSynthetic},
	})

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestInitPipeline_MissingCredentials(t *testing.T) {
	withConfig(t, &config.Config{
		Store:    config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "cli.db")},
		Pipeline: config.PipelineConfig{TimelineMode: config.TimelineModeSynthetic},
		LLM:      config.LLMConfig{Provider: "azure"},
	})

	_, err := initPipeline(context.Background(), "pipeline")
	require.Error(t, err)
}

func TestBuildCollector(t *testing.T) {
	assert.Nil(t, buildCollector(config.SourcesConfig{Enabled: false}))
	assert.NotNil(t, buildCollector(config.SourcesConfig{Enabled: true}))
	assert.NotNil(t, buildCollector(config.SourcesConfig{
		Enabled:  true,
		RSSFeeds: []string{"https://example.com/feed"},
		JinaKey:  "key",
	}))
}

func TestPricingRates(t *testing.T) {
	rates := pricingRates(config.PricingConfig{Models: map[string]config.ModelPricing{
		"gpt-4o": {Input: 2.5, Output: 10},
	}})
	require.Contains(t, rates, "gpt-4o")
	assert.InDelta(t, 2.5, rates["gpt-4o"].Input, 1e-9)
	assert.InDelta(t, 10, rates["gpt-4o"].Output, 1e-9)

	assert.Empty(t, pricingRates(config.PricingConfig{}))
}

func TestParsePhaseArg(t *testing.T) {
	p, err := parsePhaseArg("3")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseTimelineAnalysis, p)

	_, err = parsePhaseArg("x")
	assert.Error(t, err)
	_, err = parsePhaseArg("6")
	assert.Error(t, err)
}
