package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func clearLegacyEnv(t *testing.T) {
	t.Helper()
	for _, name := range legacyEnv {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	clearLegacyEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "auto", cfg.LLM.Provider)
	assert.Equal(t, "2025-01-01-preview", cfg.LLM.Azure.APIVersion)
	assert.Equal(t, 3, cfg.LLM.MaxWorkers)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 2, cfg.LLM.Retries)
	assert.Equal(t, 1000, cfg.LLM.InitialBackoffMs)
	assert.Equal(t, 10, cfg.Pipeline.VendorLimit)
	assert.Equal(t, 10, cfg.Pipeline.SubtaskLimit)
	assert.Equal(t, 8, cfg.Pipeline.AnalysisBatchSize)
	assert.Equal(t, TimelineModeSynthetic, cfg.Pipeline.TimelineMode)
	assert.False(t, cfg.Pipeline.MappingFallback)
	assert.Len(t, cfg.Sources.RSSFeeds, 5)
	assert.Equal(t, 10*time.Second, cfg.Sources.Timeout())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Server.PhaseTimeout())
	assert.Equal(t, "vendor-pipeline", cfg.Temporal.TaskQueue)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 900, cfg.Monitoring.StuckAfterSecs)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)
	clearLegacyEnv(t)

	yaml := `
store:
  driver: sqlite
  database_url: local.db
llm:
  provider: anthropic
  max_workers: 5
pipeline:
  mapping_fallback: true
  timeline_mode: llm
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "local.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 5, cfg.LLM.MaxWorkers)
	assert.True(t, cfg.Pipeline.MappingFallback)
	assert.Equal(t, TimelineModeLLM, cfg.Pipeline.TimelineMode)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)
	clearLegacyEnv(t)

	t.Setenv("AZURE_OPENAI_API_KEY", "azure-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT", "gpt-4o")
	t.Setenv("LLM_MAX_WORKERS", "7")
	t.Setenv("DATABASE_URL", "postgres://localhost/vendors")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "azure-key", cfg.LLM.Azure.Key)
	assert.Equal(t, "https://example.openai.azure.com", cfg.LLM.Azure.Endpoint)
	assert.Equal(t, "gpt-4o", cfg.LLM.Azure.Deployment)
	assert.Equal(t, 7, cfg.LLM.MaxWorkers)
	assert.Equal(t, "postgres://localhost/vendors", cfg.Store.DatabaseURL)
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	chdirTemp(t)
	clearLegacyEnv(t)

	t.Setenv("VENDOR_LLM_MAX_WORKERS", "9")
	t.Setenv("LLM_MAX_WORKERS", "4")
	t.Setenv("VENDOR_PIPELINE_ANALYSIS_BATCH_SIZE", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.LLM.MaxWorkers)
	assert.Equal(t, 4, cfg.Pipeline.AnalysisBatchSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		mode    string
		wantErr string
	}{
		{
			name: "postgres with url",
			cfg:  Config{Store: StoreConfig{Driver: "postgres", DatabaseURL: "postgres://x"}, Pipeline: PipelineConfig{TimelineMode: TimelineModeSynthetic}},
			mode: "serve",
		},
		{
			name:    "postgres missing url",
			cfg:     Config{Store: StoreConfig{Driver: "postgres"}, Pipeline: PipelineConfig{TimelineMode: TimelineModeSynthetic}},
			mode:    "serve",
			wantErr: "database_url is required",
		},
		{
			name: "sqlite needs nothing",
			cfg:  Config{Store: StoreConfig{Driver: "sqlite"}, Pipeline: PipelineConfig{TimelineMode: TimelineModeLLM}},
			mode: "pipeline",
		},
		{
			name:    "unknown driver",
			cfg:     Config{Store: StoreConfig{Driver: "mysql"}},
			mode:    "serve",
			wantErr: "unsupported store driver",
		},
		{
			name:    "unknown timeline mode",
			cfg:     Config{Store: StoreConfig{Driver: "sqlite"}, Pipeline: PipelineConfig{TimelineMode: "magic"}},
			mode:    "serve",
			wantErr: "timeline_mode",
		},
		{
			name:    "worker without queue",
			cfg:     Config{Store: StoreConfig{Driver: "sqlite"}, Pipeline: PipelineConfig{TimelineMode: TimelineModeSynthetic}},
			mode:    "worker",
			wantErr: "task_queue",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
