// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	// Evaluation configuration
	Eval EvalConfig `yaml:"eval" toml:"eval"`

	// Report output configuration
	Report ReportConfig `yaml:"report" toml:"report"`

	// Synthetic qrels generator configuration
	Generator GeneratorConfig `yaml:"generator" toml:"generator"`

	// Event bus configuration
	Bus BusConfig `yaml:"bus" toml:"bus"`

	// Run history configuration
	History HistoryConfig `yaml:"history" toml:"history"`

	// Metrics export configuration
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`

	// Logging configuration
	Log LogConfig `yaml:"log" toml:"log"`
}

// EvalConfig holds evaluation engine settings.
type EvalConfig struct {
	Workers int `envconfig:"RICE_EVAL_WORKERS" yaml:"workers" toml:"workers"`
}

// ReportConfig holds report destinations. Empty paths are not written.
type ReportConfig struct {
	CSVPath      string `envconfig:"RICE_EVAL_OUT_CSV" yaml:"csv" toml:"csv"`
	MarkdownPath string `envconfig:"RICE_EVAL_OUT_MD" yaml:"markdown" toml:"markdown"`
	HTMLPath     string `envconfig:"RICE_EVAL_OUT_HTML" yaml:"html" toml:"html"`
	JSONPath     string `envconfig:"RICE_EVAL_OUT_JSON" yaml:"json" toml:"json"`
}

// GeneratorConfig holds synthetic judgment generator settings.
type GeneratorConfig struct {
	RelevanceRate float64 `envconfig:"RICE_EVAL_RELEVANCE_RATE" yaml:"relevance_rate" toml:"relevance_rate"`
	Seed          int64   `envconfig:"RICE_EVAL_SEED" yaml:"seed" toml:"seed"`
	FallbackDepth int     `envconfig:"RICE_EVAL_FALLBACK_DEPTH" yaml:"fallback_depth" toml:"fallback_depth"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RICE_EVAL_BUS_TYPE" yaml:"type" toml:"type"`
	KafkaBrokers string `envconfig:"RICE_EVAL_KAFKA_BROKERS" yaml:"kafka_brokers" toml:"kafka_brokers"`
	KafkaTopic   string `envconfig:"RICE_EVAL_KAFKA_TOPIC" yaml:"kafka_topic" toml:"kafka_topic"`
	EventLog     string `envconfig:"RICE_EVAL_EVENT_LOG" yaml:"event_log" toml:"event_log"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Enabled  bool   `envconfig:"RICE_EVAL_HISTORY_ENABLED" yaml:"enabled" toml:"enabled"`
	RedisURL string `envconfig:"RICE_EVAL_REDIS_URL" yaml:"redis_url" toml:"redis_url"`
	Prefix   string `envconfig:"RICE_EVAL_HISTORY_PREFIX" yaml:"prefix" toml:"prefix"`
	TTLHours int    `envconfig:"RICE_EVAL_HISTORY_TTL_HOURS" yaml:"ttl_hours" toml:"ttl_hours"` // 0 = keep forever
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	PromFile string `envconfig:"RICE_EVAL_PROM_FILE" yaml:"prom_file" toml:"prom_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RICE_EVAL_LOG_LEVEL" yaml:"level" toml:"level"`
	Format string `envconfig:"RICE_EVAL_LOG_FORMAT" yaml:"format" toml:"format"`
}

// Load loads configuration from environment variables and optional config
// file, then validates it.
func Load(configPath string) (*Config, error) {
	cfg, err := Read(configPath)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Read layers defaults, the optional config file and the environment without
// validating, so callers can apply overrides before Validate. A config file
// that cannot be read is reported as NOT_FOUND or IO_ERROR.
func Read(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFoundError(path).WithDetail("path", path)
		}
		return errors.IOError(path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.Eval = EvalConfig{
		Workers: 4,
	}

	cfg.Report = ReportConfig{
		CSVPath:      "standings.csv",
		MarkdownPath: "standings.md",
	}

	cfg.Generator = GeneratorConfig{
		RelevanceRate: 0.25,
		Seed:          42,
		FallbackDepth: 3,
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaTopic: "rice-eval.events",
	}

	cfg.History = HistoryConfig{
		Enabled:  false,
		RedisURL: "redis://localhost:6379",
		Prefix:   "rice:eval:",
		TTLHours: 0,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Eval validation
	if c.Eval.Workers < 1 {
		errs = append(errs, "eval workers must be positive")
	}

	// Generator validation
	if c.Generator.RelevanceRate <= 0 || c.Generator.RelevanceRate > 1 {
		errs = append(errs, "relevance_rate must be in (0, 1]")
	}

	if c.Generator.FallbackDepth < 1 {
		errs = append(errs, "fallback_depth must be positive")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && strings.TrimSpace(c.Bus.KafkaBrokers) == "" {
		errs = append(errs, "kafka_brokers is required when bus type is kafka")
	}

	// History validation
	if c.History.Enabled && c.History.RedisURL == "" {
		errs = append(errs, "redis_url is required when history is enabled")
	}

	if c.History.TTLHours < 0 {
		errs = append(errs, "ttl_hours must not be negative")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
