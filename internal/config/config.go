package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LLMConfig configures the completion backend and call policy.
type LLMConfig struct {
	Provider          string          `yaml:"provider" mapstructure:"provider"`
	Azure             AzureConfig     `yaml:"azure" mapstructure:"azure"`
	Anthropic         AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini            GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	MaxWorkers        int             `yaml:"max_workers" mapstructure:"max_workers"`
	Temperature       float64         `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens         int             `yaml:"max_tokens" mapstructure:"max_tokens"`
	Retries           int             `yaml:"retries" mapstructure:"retries"`
	InitialBackoffMs  int             `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	RequestsPerSecond float64         `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CircuitThreshold  int             `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs  int             `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// AzureConfig holds Azure OpenAI deployment settings.
type AzureConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	Deployment string `yaml:"deployment" mapstructure:"deployment"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google GenAI settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig configures phase behavior.
type PipelineConfig struct {
	VendorLimit       int    `yaml:"vendor_limit" mapstructure:"vendor_limit"`
	SubtaskLimit      int    `yaml:"subtask_limit" mapstructure:"subtask_limit"`
	AnalysisBatchSize int    `yaml:"analysis_batch_size" mapstructure:"analysis_batch_size"`
	TimelineMode      string `yaml:"timeline_mode" mapstructure:"timeline_mode"`
	MappingFallback   bool   `yaml:"mapping_fallback" mapstructure:"mapping_fallback"`
}

// Timeline modes.
const (
	TimelineModeSynthetic = "synthetic"
	TimelineModeLLM       = "llm"
)

// SourcesConfig configures the optional vendor enrichment sources.
type SourcesConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	RSSFeeds      []string `yaml:"rss_feeds" mapstructure:"rss_feeds"`
	JinaKey       string   `yaml:"jina_key" mapstructure:"jina_key"`
	JinaSearchURL string   `yaml:"jina_search_url" mapstructure:"jina_search_url"`
	TimeoutSecs   int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Limit         int      `yaml:"limit" mapstructure:"limit"`
}

// Timeout returns the per-source timeout.
func (s SourcesConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	PhaseTimeoutSecs int      `yaml:"phase_timeout_secs" mapstructure:"phase_timeout_secs"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// PhaseTimeout returns the ceiling a trigger waits for a phase handler.
func (s ServerConfig) PhaseTimeout() time.Duration {
	return time.Duration(s.PhaseTimeoutSecs) * time.Second
}

// TemporalConfig configures the optional Temporal worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
}

// PricingConfig holds per-model token pricing.
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// MonitoringConfig configures the background alert checker.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	CostThresholdUSD     float64 `yaml:"cost_threshold_usd" mapstructure:"cost_threshold_usd"`
	StuckAfterSecs       int     `yaml:"stuck_after_secs" mapstructure:"stuck_after_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"llm.azure.key":         "AZURE_OPENAI_API_KEY",
	"llm.azure.endpoint":    "AZURE_OPENAI_ENDPOINT",
	"llm.azure.deployment":  "AZURE_OPENAI_DEPLOYMENT",
	"llm.azure.api_version": "AZURE_API_VERSION",
	"llm.anthropic.key":     "ANTHROPIC_API_KEY",
	"llm.gemini.key":        "GEMINI_API_KEY",
	"llm.max_workers":       "LLM_MAX_WORKERS",
	"store.database_url":    "DATABASE_URL",
	"log.level":             "LOG_LEVEL",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VENDOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		envName := "VENDOR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("llm.provider", "auto")
	v.SetDefault("llm.azure.api_version", "2025-01-01-preview")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")
	v.SetDefault("llm.max_workers", 3)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.initial_backoff_ms", 1000)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("llm.circuit_threshold", 5)
	v.SetDefault("llm.circuit_reset_secs", 30)
	v.SetDefault("pipeline.vendor_limit", 10)
	v.SetDefault("pipeline.subtask_limit", 10)
	v.SetDefault("pipeline.analysis_batch_size", 8)
	v.SetDefault("pipeline.timeline_mode", TimelineModeSynthetic)
	v.SetDefault("pipeline.mapping_fallback", false)
	v.SetDefault("sources.enabled", true)
	v.SetDefault("sources.rss_feeds", []string{
		"https://github.blog/feed/",
		"https://openai.com/feed/",
		"https://www.anthropic.com/feed/",
		"https://aws.amazon.com/feed/",
		"https://azure.microsoft.com/feed/",
	})
	v.SetDefault("sources.jina_search_url", "https://s.jina.ai")
	v.SetDefault("sources.timeout_secs", 10)
	v.SetDefault("sources.limit", 10)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.phase_timeout_secs", 300)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "vendor-pipeline")
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.cost_threshold_usd", 0)
	v.SetDefault("monitoring.stuck_after_secs", 900)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode.
// Mode "serve" and "pipeline" need a usable store; "worker" also needs a
// Temporal task queue.
func (c *Config) Validate(mode string) error {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for postgres (VENDOR_STORE_DATABASE_URL or DATABASE_URL)")
		}
	case "sqlite":
	default:
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}

	switch c.Pipeline.TimelineMode {
	case TimelineModeSynthetic, TimelineModeLLM:
	default:
		return eris.Errorf("config: unsupported pipeline.timeline_mode %q", c.Pipeline.TimelineMode)
	}

	if mode == "worker" && c.Temporal.TaskQueue == "" {
		return eris.New("config: temporal.task_queue is required for the worker")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
