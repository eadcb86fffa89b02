package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/atsumeru/internal/config"
	"github.com/hyperjump/atsumeru/internal/embedding"
	"github.com/hyperjump/atsumeru/internal/extract"
	"github.com/hyperjump/atsumeru/internal/pipeline"
)

func TestEmbedFiles_CreatesOutputDir(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.InputDir = t.TempDir()
	cfg.Pipeline.OutputDir = filepath.Join(t.TempDir(), "embeddings")
	cfg.Pipeline.Format = "json"
	cfg.Pipeline.ChunkSize = 5
	cfg.Pipeline.Overlap = 2

	path := filepath.Join(cfg.Pipeline.InputDir, "doc.txt")
	if err := os.WriteFile(path, []byte("one two three\n\nfour five six"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := pipeline.New(&cfg.Pipeline, extract.NewExtractor(), embedding.NewMockEmbedder(4))
	if err != nil {
		t.Fatal(err)
	}
	total := embedFiles(context.Background(), p, cfg, zap.NewNop(), []string{path})
	if total == 0 {
		t.Fatal("expected embeddings from the named file")
	}
	if _, err := os.Stat(filepath.Join(cfg.Pipeline.OutputDir, "doc_embeddings.json")); err != nil {
		t.Errorf("output missing, directory was not created: %v", err)
	}
}
