package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Browser     BrowserConfig   `toml:"browser"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Oracle      OracleConfig    `toml:"oracle"`
	Twitter     TwitterConfig   `toml:"twitter"`
	Sources     SourcesConfig   `toml:"sources"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// StorageConfig holds the on-disk data layout roots. All pipeline output is
// plain JSON under DataDir; the directory doubles as the read-API contract.
type StorageConfig struct {
	DataDir string `toml:"data_dir"` // Root for raw/, processed/, state/, logs/
}

// CrawlerConfig contains HTTP fetching configuration shared by all strategies
type CrawlerConfig struct {
	UserAgentRotation      bool          `toml:"user_agent_rotation"`       // Pick a random browser UA per request
	MaxConcurrentPerDomain int           `toml:"max_concurrent_per_domain"` // Concurrent requests per host
	RequestDelay           time.Duration `toml:"request_delay"`             // Minimum delay between requests to same host
	RequestTimeout         time.Duration `toml:"request_timeout"`           // Per-request timeout
	MaxRetries             int           `toml:"max_retries"`               // Attempts per request (initial + retries)
	RetryBaseDelay         time.Duration `toml:"retry_base_delay"`          // Base for exponential backoff
	MaxBodySize            int64         `toml:"max_body_size"`             // Maximum response body size in bytes
}

// BrowserConfig contains headless Chrome rendering configuration
type BrowserConfig struct {
	Enabled       bool          `toml:"enabled"`        // Allow dynamic rendering at all
	MaxContexts   int           `toml:"max_contexts"`   // Concurrent render contexts
	RenderTimeout time.Duration `toml:"render_timeout"` // Per-page render timeout
	DetailTimeout time.Duration `toml:"detail_timeout"` // Per-detail-page timeout within a render session
	Headless      bool          `toml:"headless"`
}

type SchedulerConfig struct {
	Enabled             bool          `toml:"enabled"`
	MaxConcurrentCrawls int           `toml:"max_concurrent_crawls"` // Global cap across all sources
	JitterMax           time.Duration `toml:"jitter_max"`            // Uniform startup jitter per task
	ShutdownGrace       time.Duration `toml:"shutdown_grace"`        // Wait for in-flight crawls on Stop
}

type PipelineConfig struct {
	CronHour   int `toml:"cron_hour"`   // Daily pipeline trigger hour (local time)
	CronMinute int `toml:"cron_minute"` // Daily pipeline trigger minute
}

// OracleConfig contains the LLM enrichment backend configuration.
// Enrichment stages are skipped entirely when disabled or the key is empty.
type OracleConfig struct {
	Enabled     bool    `toml:"enabled"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
	Threshold   int     `toml:"threshold"`   // Minimum rule match score before an article is sent for enrichment
	Concurrency int     `toml:"concurrency"` // Concurrent enrichment requests
}

// TwitterConfig carries the twitterapi.io key used by the twitter parsers
type TwitterConfig struct {
	APIKey string `toml:"api_key"`
}

type SourcesConfig struct {
	Dir string `toml:"dir"` // Directory containing per-dimension YAML catalogs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Crawler: CrawlerConfig{
			UserAgentRotation:      true,
			MaxConcurrentPerDomain: 2,
			RequestDelay:           1 * time.Second,
			RequestTimeout:         30 * time.Second,
			MaxRetries:             3,
			RetryBaseDelay:         1 * time.Second,
			MaxBodySize:            10 * 1024 * 1024, // 10MB
		},
		Browser: BrowserConfig{
			Enabled:       true,
			MaxContexts:   3,
			RenderTimeout: 60 * time.Second,
			DetailTimeout: 20 * time.Second,
			Headless:      true,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			MaxConcurrentCrawls: 5,
			JitterMax:           5 * time.Minute,
			ShutdownGrace:       30 * time.Second,
		},
		Pipeline: PipelineConfig{
			CronHour:   6,
			CronMinute: 0,
		},
		Oracle: OracleConfig{
			Enabled:     false,
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "5m",
			Temperature: 0.3,
			Threshold:   60,
			Concurrency: 3,
		},
		Sources: SourcesConfig{
			Dir: "./sources",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ARGUS_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("ARGUS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ARGUS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if dataDir := os.Getenv("ARGUS_DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if sourcesDir := os.Getenv("ARGUS_SOURCES_DIR"); sourcesDir != "" {
		config.Sources.Dir = sourcesDir
	}

	if level := os.Getenv("ARGUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("MAX_CONCURRENT_CRAWLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Scheduler.MaxConcurrentCrawls = n
		}
	}
	if v := os.Getenv("MAX_CONCURRENT_PER_DOMAIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.MaxConcurrentPerDomain = n
		}
	}
	// PLAYWRIGHT_MAX_CONTEXTS is the legacy name; BROWSER_MAX_CONTEXTS wins
	// when both are set
	for _, key := range []string{"PLAYWRIGHT_MAX_CONTEXTS", "BROWSER_MAX_CONTEXTS"} {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				config.Browser.MaxContexts = n
			}
		}
	}
	if v := os.Getenv("PIPELINE_CRON_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			config.Pipeline.CronHour = n
		}
	}
	if v := os.Getenv("PIPELINE_CRON_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 59 {
			config.Pipeline.CronMinute = n
		}
	}

	if v := os.Getenv("ENABLE_LLM_ENRICHMENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Oracle.Enabled = b
		}
	}
	if key := os.Getenv("ORACLE_API_KEY"); key != "" {
		config.Oracle.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Oracle.APIKey == "" {
		config.Oracle.APIKey = key
	}
	if model := os.Getenv("ORACLE_MODEL"); model != "" {
		config.Oracle.Model = model
	}
	if v := os.Getenv("LLM_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Oracle.Threshold = n
		}
	}
	if key := os.Getenv("TWITTER_API_KEY"); key != "" {
		config.Twitter.APIKey = key
	}
}

// OracleReady reports whether LLM enrichment can actually run.
// Both the feature flag and a key are required; callers use the reason
// string for skipped-stage summaries.
func (c *Config) OracleReady() (bool, string) {
	if c.Oracle.APIKey == "" {
		return false, "ORACLE_API_KEY not set"
	}
	if !c.Oracle.Enabled {
		return false, "ENABLE_LLM_ENRICHMENT=false"
	}
	return true, ""
}
