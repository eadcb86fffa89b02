package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hyperjump/atsumeru/internal/config"
	"github.com/hyperjump/atsumeru/internal/embedding"
	"github.com/hyperjump/atsumeru/internal/extract"
	"github.com/hyperjump/atsumeru/internal/models"
)

// countingEmbedder wraps MockEmbedder and counts Embed calls; texts listed
// in failOn produce an error instead.
type countingEmbedder struct {
	inner  embedding.Embedder
	calls  atomic.Int64
	failOn map[string]bool
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: embedding.NewMockEmbedder(4), failOn: map[string]bool{}}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.failOn[text] {
		return nil, errors.New("embedding unavailable")
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Close() error    { return nil }

func testConfig(t *testing.T) (*config.PipelineConfig, string, string) {
	t.Helper()
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "embeddings")
	cfg := &config.PipelineConfig{
		InputDir:   inDir,
		OutputDir:  outDir,
		Format:     "json",
		Separator:  "\n\n",
		ChunkSize:  5,
		Overlap:    2,
		MaxWorkers: 2,
		Extensions: []string{".txt", ".pdf"},
	}
	return cfg, inDir, outDir
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessFile_WritesEmbeddings(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	path := writeInput(t, inDir, "doc.txt", "one two three\n\nfour five six\n\nseven eight nine")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if n < 2 {
		t.Errorf("embeddings = %d, want >= 2", n)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "doc_embeddings.json"))
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(data, &vectors); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if len(vectors) != n {
		t.Errorf("output rows = %d, want %d", len(vectors), n)
	}
	for _, v := range vectors {
		if len(v) != 4 {
			t.Errorf("vector length = %d", len(v))
		}
	}
}

func TestProcessFile_SkipsExistingOutput(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	path := writeInput(t, inDir, "doc.txt", "some text")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeInput(t, outDir, "doc_embeddings.json", "[]")

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 for satisfied job", n)
	}
	if emb.calls.Load() != 0 {
		t.Errorf("embedder called %d times for a skipped file", emb.calls.Load())
	}
}

func TestProcessFile_UnsupportedExtension(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	cfg.Extensions = []string{".txt", ".pdf", ".docx"}
	path := writeInput(t, inDir, "doc.docx", "binary stuff")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	entries, _ := os.ReadDir(outDir)
	if len(entries) != 0 {
		t.Errorf("nothing should be written for unsupported files, found %d entries", len(entries))
	}
}

func TestProcessFile_BlankText(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	path := writeInput(t, inDir, "blank.txt", "   \n\n \t ")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil || n != 0 {
		t.Errorf("blank file: n=%d err=%v, want 0, nil", n, err)
	}
}

func TestProcessFile_DropsFailedChunks(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	path := writeInput(t, inDir, "doc.txt", "aa bb cc\n\ndd ee ff\n\ngg hh ii")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	// Fail the first chunk; the rest still get embedded and written.
	emb.failOn["aa bb cc"] = true
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if n == 0 {
		t.Fatal("expected surviving embeddings")
	}
	data, err := os.ReadFile(filepath.Join(outDir, "doc_embeddings.json"))
	if err != nil {
		t.Fatal(err)
	}
	var vectors [][]float32
	if err := json.Unmarshal(data, &vectors); err != nil {
		t.Fatal(err)
	}
	if len(vectors) != n {
		t.Errorf("output rows = %d, count = %d", len(vectors), n)
	}
}

func TestProcessFile_DroppedChunkLogsChunkID(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	path := writeInput(t, inDir, "doc.txt", "aa bb cc\n\ndd ee ff\n\ngg hh ii")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zap.DebugLevel)
	emb := newCountingEmbedder()
	emb.failOn["aa bb cc"] = true
	p, err := New(cfg, extract.NewExtractor(), emb, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}

	dropped := logs.FilterMessage("chunk dropped after retries").All()
	if len(dropped) != 1 {
		t.Fatalf("dropped log entries = %d, want 1", len(dropped))
	}
	id, ok := dropped[0].ContextMap()["chunk_id"].(string)
	if !ok || !strings.HasPrefix(id, "doc_") {
		t.Errorf("chunk_id field = %v, want doc-prefixed id", dropped[0].ContextMap()["chunk_id"])
	}
	for _, entry := range logs.FilterMessage("chunk embedded").All() {
		if id, ok := entry.ContextMap()["chunk_id"].(string); !ok || !strings.HasPrefix(id, "doc_") {
			t.Errorf("embedded chunk_id field = %v", entry.ContextMap()["chunk_id"])
		}
	}
}

func TestProcessFile_SinkFailureStillReportsCount(t *testing.T) {
	cfg, inDir, _ := testConfig(t)
	path := writeInput(t, inDir, "doc.txt", "one two three\n\nfour five six\n\nseven eight nine")
	// A regular file where the output directory should be makes every
	// write fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.OutputDir = blocker

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if n < 2 {
		t.Errorf("count = %d, want the in-memory embedding count despite the failed write", n)
	}
	if _, statErr := os.Stat(filepath.Join(blocker, "doc_embeddings.json")); statErr == nil {
		t.Error("no output should exist under a blocked output path")
	}
}

func TestBuildChunks(t *testing.T) {
	doc := models.Document{Path: "/in/report.pdf", Text: "alpha\n\nbeta"}
	chunks := buildChunks(doc, []string{"alpha", "beta"})
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
		if !strings.HasPrefix(c.ID, "report_") {
			t.Errorf("chunk %d id = %q, want report_ prefix", i, c.ID)
		}
		if len(c.ID) != len("report_")+8 {
			t.Errorf("chunk %d id = %q, want 8-char suffix", i, c.ID)
		}
	}
	if chunks[0].ID == chunks[1].ID {
		t.Error("chunk ids must be unique")
	}
	if chunks[0].Text != "alpha" || chunks[1].Text != "beta" {
		t.Errorf("chunk texts = %q, %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestProcessFolder_MissingInputDirIsFatal(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.InputDir = filepath.Join(cfg.InputDir, "does-not-exist")
	p, err := New(cfg, extract.NewExtractor(), newCountingEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ProcessFolder(context.Background()); err == nil {
		t.Error("expected error for missing input directory")
	}
}

func TestProcessFolder_SumsEligibleFiles(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	writeInput(t, inDir, "a.txt", "one two\n\nthree four")
	writeInput(t, inDir, "b.txt", "five six\n\nseven eight")
	writeInput(t, inDir, "c.txt", "nine ten")
	writeInput(t, inDir, "ignored.docx", "not eligible")

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	total, err := p.ProcessFolder(context.Background())
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}

	var sum int
	for _, stem := range []string{"a", "b", "c"} {
		data, err := os.ReadFile(filepath.Join(outDir, stem+"_embeddings.json"))
		if err != nil {
			t.Fatalf("missing output for %s: %v", stem, err)
		}
		var vectors [][]float32
		if err := json.Unmarshal(data, &vectors); err != nil {
			t.Fatal(err)
		}
		sum += len(vectors)
	}
	if total != sum {
		t.Errorf("total = %d, per-file sum = %d", total, sum)
	}
	if _, err := os.Stat(filepath.Join(outDir, "ignored_embeddings.json")); !os.IsNotExist(err) {
		t.Error("ineligible file must not be processed")
	}
}

func TestProcessFolder_OneBadFileDoesNotAbort(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	writeInput(t, inDir, "good.txt", "alpha beta")
	// A .pdf that is not a PDF fails extraction.
	writeInput(t, inDir, "broken.pdf", "definitely not a pdf")

	emb := newCountingEmbedder()
	p, err := New(cfg, extract.NewExtractor(), emb)
	if err != nil {
		t.Fatal(err)
	}
	total, err := p.ProcessFolder(context.Background())
	if err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}
	if total == 0 {
		t.Error("good file should still contribute embeddings")
	}
	if _, err := os.Stat(filepath.Join(outDir, "good_embeddings.json")); err != nil {
		t.Errorf("good file output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "broken_embeddings.json")); !os.IsNotExist(err) {
		t.Error("broken file must not produce output")
	}
}

func TestProcessFolder_CreatesOutputDir(t *testing.T) {
	cfg, inDir, outDir := testConfig(t)
	writeInput(t, inDir, "a.txt", "hello world")
	p, err := New(cfg, extract.NewExtractor(), newCountingEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.ProcessFolder(context.Background()); err != nil {
		t.Fatalf("ProcessFolder: %v", err)
	}
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestNew_RejectsBadFormat(t *testing.T) {
	cfg, _, _ := testConfig(t)
	cfg.Format = "parquet"
	if _, err := New(cfg, extract.NewExtractor(), newCountingEmbedder()); err == nil {
		t.Error("expected error for unsupported format")
	}
}
