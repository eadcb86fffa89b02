// Package config provides configuration loading and structs for atsumeru.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retry     RetryConfig     `yaml:"retry"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
}

// EmbeddingConfig holds settings for the OpenAI-compatible embedding API.
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey resolves the credential from the configured environment variable,
// falling back to OPENAI_API_KEY.
func (c *EmbeddingConfig) APIKey() string {
	if c.APIKeyEnv != "" {
		if v := os.Getenv(c.APIKeyEnv); v != "" {
			return v
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

// RetryConfig holds embedding request retry settings.
type RetryConfig struct {
	// Policy is "exponential" (default, with jitter) or "linear" (fixed delay).
	Policy      string `yaml:"policy"`
	Attempts    int    `yaml:"attempts"`
	BaseDelayMS int    `yaml:"base_delay_ms"`
	MaxDelayMS  int    `yaml:"max_delay_ms"`
}

// BaseDelay returns the base delay as a duration.
func (c *RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the delay cap as a duration.
func (c *RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

// PipelineConfig holds folder embedding run settings.
type PipelineConfig struct {
	InputDir   string   `yaml:"input_dir"`
	OutputDir  string   `yaml:"output_dir"`
	Format     string   `yaml:"format"` // npy, csv, or json
	Separator  string   `yaml:"separator"`
	ChunkSize  int      `yaml:"chunk_size"`
	Overlap    int      `yaml:"overlap"`
	MaxWorkers int      `yaml:"max_workers"`
	Extensions []string `yaml:"extensions"`
}

// ScrapeConfig holds web scraping settings.
type ScrapeConfig struct {
	OutputDir      string `yaml:"output_dir"`
	Output         string `yaml:"output"` // txt, csv, or json
	ProcessedFile  string `yaml:"processed_file"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Dataset        string `yaml:"dataset"`
}

// Timeout returns the per-request fetch timeout.
func (c *ScrapeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	cfg.Pipeline.InputDir = expandPath(cfg.Pipeline.InputDir)
	cfg.Pipeline.OutputDir = expandPath(cfg.Pipeline.OutputDir)
	cfg.Scrape.OutputDir = expandPath(cfg.Scrape.OutputDir)
	cfg.Scrape.ProcessedFile = expandPath(cfg.Scrape.ProcessedFile)

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no
// config file exists.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath expands a leading "~" to the home directory. Other relative
// paths stay relative to the working directory, matching how the batch
// commands are run.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
