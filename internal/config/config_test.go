package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Pipeline.ChunkSize != 1000 || cfg.Pipeline.Overlap != 100 {
		t.Errorf("chunking defaults = %d/%d", cfg.Pipeline.ChunkSize, cfg.Pipeline.Overlap)
	}
	if cfg.Pipeline.Separator != "\n\n" {
		t.Errorf("separator = %q", cfg.Pipeline.Separator)
	}
	if cfg.Pipeline.MaxWorkers != 5 {
		t.Errorf("max workers = %d", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Retry.Policy != "exponential" || cfg.Retry.Attempts != 3 {
		t.Errorf("retry defaults = %q/%d", cfg.Retry.Policy, cfg.Retry.Attempts)
	}
	if cfg.Pipeline.Format != "npy" {
		t.Errorf("format = %q", cfg.Pipeline.Format)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
pipeline:
  input_dir: docs
  chunk_size: 512
  overlap: 64
retry:
  policy: linear
  base_delay_ms: 500
embedding:
  model: text-embedding-3-small
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug not set")
	}
	if cfg.Pipeline.InputDir != "docs" || cfg.Pipeline.ChunkSize != 512 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Retry.Policy != "linear" || cfg.Retry.BaseDelayMS != 500 {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	// Defaults still fill the gaps.
	if cfg.Pipeline.OutputDir != "Embeddings" {
		t.Errorf("output dir = %q", cfg.Pipeline.OutputDir)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("attempts = %d", cfg.Retry.Attempts)
	}
}

func TestLoad_missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestAPIKey(t *testing.T) {
	c := EmbeddingConfig{APIKeyEnv: "ATSUMERU_TEST_KEY"}
	t.Setenv("ATSUMERU_TEST_KEY", "sk-primary")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	if got := c.APIKey(); got != "sk-primary" {
		t.Errorf("APIKey = %q", got)
	}
	t.Setenv("ATSUMERU_TEST_KEY", "")
	if got := c.APIKey(); got != "sk-fallback" {
		t.Errorf("fallback APIKey = %q", got)
	}
}
