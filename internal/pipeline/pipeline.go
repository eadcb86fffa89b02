// Package pipeline drives file extraction, segmentation, embedding, and
// persistence over a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/atsumeru/internal/config"
	"github.com/hyperjump/atsumeru/internal/embedding"
	"github.com/hyperjump/atsumeru/internal/extract"
	"github.com/hyperjump/atsumeru/internal/models"
	"github.com/hyperjump/atsumeru/internal/segment"
	"github.com/hyperjump/atsumeru/internal/sink"
	"github.com/hyperjump/atsumeru/pkg/utils"
)

// Pipeline turns input files into per-file embedding outputs. Files are
// independent units of work: the embedder is shared read-only, each file
// writes only its own deterministic output path, and no state is shared
// across workers.
type Pipeline struct {
	extractor  *extract.Extractor
	embedder   embedding.Embedder
	segmenter  *segment.Segmenter
	inputDir   string
	outputDir  string
	format     sink.Format
	extensions []string
	maxWorkers int
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for progress and outcome events.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline from cfg with the given collaborators. The
// embedder is injected by the caller (typically already wrapped with
// retry); the format name is validated here so a bad configuration fails
// before any work is dispatched.
func New(cfg *config.PipelineConfig, extractor *extract.Extractor, embedder embedding.Embedder, opts ...Option) (*Pipeline, error) {
	format, err := sink.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	p := &Pipeline{
		extractor:  extractor,
		embedder:   embedder,
		segmenter:  segment.NewSegmenter(cfg.Separator, cfg.ChunkSize, cfg.Overlap),
		inputDir:   cfg.InputDir,
		outputDir:  cfg.OutputDir,
		format:     format,
		extensions: cfg.Extensions,
		maxWorkers: workers,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessFile runs one file through extract, segment, embed, and write.
// Returns the number of embeddings generated. The file is skipped (zero,
// nil error) when its output already exists, its extension has no
// extraction strategy, or extraction yields blank text. Chunks whose
// embedding request fails after retries are dropped; the remaining vectors
// are still written. A sink write failure is logged but does not fail the
// call, so the in-memory count is always reported.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (int, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outPath := sink.OutputPath(p.outputDir, stem, p.format)

	if _, err := os.Stat(outPath); err == nil {
		p.logger.Info("embeddings already exist, skipping",
			zap.String("file", base),
			zap.String("output", outPath),
		)
		return 0, nil
	}

	kind := extract.KindForPath(path)
	if kind == extract.KindUnsupported {
		p.logger.Warn("unsupported file type, skipping", zap.String("file", base))
		return 0, nil
	}

	text, err := p.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", base, err)
	}
	if strings.TrimSpace(text) == "" {
		p.logger.Warn("no text extracted, skipping", zap.String("file", base))
		return 0, nil
	}

	doc := models.Document{Path: path, Text: text}
	chunks := buildChunks(doc, p.segmenter.Segment(doc.Text))
	records := make([]models.EmbeddingRecord, 0, len(chunks))
	start := time.Now()
	for _, chunk := range chunks {
		vec, err := p.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			if ctx.Err() != nil {
				return len(records), ctx.Err()
			}
			p.logger.Warn("chunk dropped after retries",
				zap.String("file", base),
				zap.String("chunk_id", chunk.ID),
				zap.Int("chunk", chunk.Index+1),
				zap.Int("total_chunks", len(chunks)),
				zap.Error(err),
			)
			continue
		}
		records = append(records, models.EmbeddingRecord{
			ChunkID:    chunk.ID,
			ChunkIndex: chunk.Index,
			Vector:     vec,
		})
		p.logger.Debug("chunk embedded",
			zap.String("file", base),
			zap.String("chunk_id", chunk.ID),
			zap.Int("chunk", chunk.Index+1),
			zap.Int("total_chunks", len(chunks)),
			zap.String("preview", utils.Truncate(chunk.Text, 60)),
		)
	}
	p.logger.Info("embeddings generated",
		zap.String("file", base),
		zap.Int("embeddings", len(records)),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)),
	)

	vectors := make([][]float32, len(records))
	for i, rec := range records {
		vectors[i] = rec.Vector
	}
	if err := sink.Write(vectors, outPath, p.format); err != nil {
		p.logger.Error("failed to save embeddings",
			zap.String("output", outPath),
			zap.Error(err),
		)
	}
	return len(records), nil
}

// ProcessFolder processes every eligible file in the input directory
// (non-recursive) through a bounded worker pool and returns the total
// embedding count. A missing input directory is fatal; the output directory
// is created when absent. One file's failure is logged and contributes
// zero without affecting sibling files.
func (p *Pipeline) ProcessFolder(ctx context.Context) (int, error) {
	info, err := os.Stat(p.inputDir)
	if err != nil {
		return 0, fmt.Errorf("input directory %q: %w", p.inputDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("input path %q is not a directory", p.inputDir)
	}
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	files, err := p.listFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		p.logger.Info("no eligible files found", zap.String("dir", p.inputDir))
		return 0, nil
	}

	pool, err := ants.NewPool(p.maxWorkers, ants.WithPanicHandler(func(v interface{}) {
		p.logger.Error("file worker panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		total atomic.Int64
	)
	start := time.Now()
	for _, path := range files {
		path := path
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			n, err := p.ProcessFile(ctx, path)
			if err != nil {
				p.logger.Error("file processing failed",
					zap.String("path", path),
					zap.Error(err),
				)
				return
			}
			total.Add(int64(n))
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("failed to submit file", zap.String("path", path), zap.Error(submitErr))
		}
	}
	wg.Wait()

	p.logger.Info("folder processed",
		zap.String("dir", p.inputDir),
		zap.Int("files", len(files)),
		zap.Int64("embeddings", total.Load()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return int(total.Load()), nil
}

// Eligible reports whether path has one of the pipeline's input extensions.
func (p *Pipeline) Eligible(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range p.extensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// listFiles returns eligible regular files directly under the input dir.
func (p *Pipeline) listFiles() ([]string, error) {
	entries, err := os.ReadDir(p.inputDir)
	if err != nil {
		return nil, fmt.Errorf("list input directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !p.Eligible(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(p.inputDir, entry.Name()))
	}
	return files, nil
}

// buildChunks wraps the segmenter's output with stable identities for
// logging and records. IDs are prefixed with the document's filename stem so
// a log line can be traced back to its source file.
func buildChunks(doc models.Document, texts []string) []models.Chunk {
	base := filepath.Base(doc.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:    fmt.Sprintf("%s_%s", stem, uuid.New().String()[:8]),
			Index: i,
			Text:  text,
		}
	}
	return chunks
}
