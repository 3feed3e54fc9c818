package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RICE_EVAL_WORKERS", "8")
	t.Setenv("RICE_EVAL_LOG_LEVEL", "debug")
	t.Setenv("RICE_EVAL_SEED", "7")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Eval.Workers != 8 {
		t.Errorf("Eval.Workers = %d, want 8", cfg.Eval.Workers)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if cfg.Generator.Seed != 7 {
		t.Errorf("Generator.Seed = %d, want 7", cfg.Generator.Seed)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Report.CSVPath != "standings.csv" {
		t.Errorf("Report.CSVPath = %s, want standings.csv", cfg.Report.CSVPath)
	}
	if cfg.Report.MarkdownPath != "standings.md" {
		t.Errorf("Report.MarkdownPath = %s, want standings.md", cfg.Report.MarkdownPath)
	}
	if cfg.Generator.RelevanceRate != 0.25 {
		t.Errorf("Generator.RelevanceRate = %v, want 0.25", cfg.Generator.RelevanceRate)
	}
	if cfg.Generator.Seed != 42 {
		t.Errorf("Generator.Seed = %d, want 42", cfg.Generator.Seed)
	}
	if cfg.Bus.Type != "memory" {
		t.Errorf("Bus.Type = %s, want memory", cfg.Bus.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
eval:
  workers: 2
report:
  csv: "out/results.csv"
  html: "out/results.html"
log:
  level: warn
  format: json
generator:
  seed: 1234
  relevance_rate: 0.5
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Eval.Workers != 2 {
		t.Errorf("Eval.Workers = %d, want 2", cfg.Eval.Workers)
	}

	if cfg.Report.CSVPath != "out/results.csv" {
		t.Errorf("Report.CSVPath = %s, want out/results.csv", cfg.Report.CSVPath)
	}

	// Untouched keys keep their defaults
	if cfg.Report.MarkdownPath != "standings.md" {
		t.Errorf("Report.MarkdownPath = %s, want standings.md", cfg.Report.MarkdownPath)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}

	if cfg.Generator.Seed != 1234 {
		t.Errorf("Generator.Seed = %d, want 1234", cfg.Generator.Seed)
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[eval]
workers = 3

[bus]
type = "kafka"
kafka_brokers = "broker-1:9092,broker-2:9092"

[metrics]
prom_file = "/var/lib/node_exporter/rice_eval.prom"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Eval.Workers != 3 {
		t.Errorf("Eval.Workers = %d, want 3", cfg.Eval.Workers)
	}
	if cfg.Bus.Type != "kafka" {
		t.Errorf("Bus.Type = %s, want kafka", cfg.Bus.Type)
	}
	if cfg.Bus.KafkaBrokers != "broker-1:9092,broker-2:9092" {
		t.Errorf("Bus.KafkaBrokers = %s", cfg.Bus.KafkaBrokers)
	}
	if cfg.Metrics.PromFile != "/var/lib/node_exporter/rice_eval.prom" {
		t.Errorf("Metrics.PromFile = %s", cfg.Metrics.PromFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("Load() error = %v, want NOT_FOUND", err)
	}
}

func TestRead_DefersValidation(t *testing.T) {
	t.Setenv("RICE_EVAL_WORKERS", "0")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() error = nil, want validation error for zero workers")
	}

	cfg, err := Read("")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Eval.Workers != 0 {
		t.Errorf("Eval.Workers = %d, want 0 from environment", cfg.Eval.Workers)
	}

	// An override fixes what the environment broke
	cfg.Eval.Workers = 2
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after override error = %v", err)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "zero workers",
			modify: func(c *Config) {
				c.Eval.Workers = 0
			},
			wantErr: true,
		},
		{
			name: "relevance rate out of range",
			modify: func(c *Config) {
				c.Generator.RelevanceRate = 1.5
			},
			wantErr: true,
		},
		{
			name: "zero relevance rate",
			modify: func(c *Config) {
				c.Generator.RelevanceRate = 0
			},
			wantErr: true,
		},
		{
			name: "zero fallback depth",
			modify: func(c *Config) {
				c.Generator.FallbackDepth = 0
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			modify: func(c *Config) {
				c.Log.Format = "xml"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "history without redis url",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.RedisURL = ""
			},
			wantErr: true,
		},
		{
			name: "negative ttl",
			modify: func(c *Config) {
				c.History.TTLHours = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := Default()

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
