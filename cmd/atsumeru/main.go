// Package main is the atsumeru CLI entry point.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/atsumeru/internal/config"
	"github.com/hyperjump/atsumeru/internal/embedding"
	"github.com/hyperjump/atsumeru/internal/extract"
	"github.com/hyperjump/atsumeru/internal/pipeline"
	"github.com/hyperjump/atsumeru/internal/scrape"
	"github.com/hyperjump/atsumeru/internal/segment"
	"github.com/hyperjump/atsumeru/internal/watcher"
	"github.com/hyperjump/atsumeru/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/atsumeru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if neither
// exists the built-in defaults are used. Returns the config and the path that
// was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Credentials commonly live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "embed":
		runEmbed()
	case "scrape":
		runScrape()
	case "analyze":
		runAnalyze()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("atsumeru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by all subcommands.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolvedPath != "" {
		logger.Info("config loaded",
			zap.String("config_path", resolvedPath),
			zap.Bool("debug", debugMode),
		)
	} else {
		logger.Info("using default config", zap.Bool("debug", debugMode))
	}
	return cfg, logger
}

// buildEmbedder constructs the API client and wraps it with the configured
// retry policy.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	client, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey(),
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	policy := embedding.NewPolicy(cfg.Retry.Policy, cfg.Retry.BaseDelay(), cfg.Retry.MaxDelay())
	return embedding.NewRetryingEmbedder(client, cfg.Retry.Attempts, policy, embedding.WithLogger(logger)), nil
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	input := fs.String("input", "", "input directory (overrides config)")
	output := fs.String("output", "", "output directory (overrides config)")
	format := fs.String("format", "", "output format: npy, csv, or json (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *input != "" {
		cfg.Pipeline.InputDir = *input
	}
	if *output != "" {
		cfg.Pipeline.OutputDir = *output
	}
	if *format != "" {
		cfg.Pipeline.Format = *format
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	p, err := pipeline.New(&cfg.Pipeline, extract.NewExtractor(), embedder, pipeline.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if fs.NArg() > 0 {
		total := embedFiles(ctx, p, cfg, logger, fs.Args())
		fmt.Printf("Generated %d embedding(s)\n", total)
		return
	}

	total, err := p.ProcessFolder(ctx)
	if err != nil {
		logger.Fatal("Folder processing failed", zap.Error(err))
	}
	fmt.Printf("Generated %d embedding(s) from %s\n", total, cfg.Pipeline.InputDir)
}

// embedFiles processes explicitly named files. Folder mode creates the
// output directory inside ProcessFolder; single-file mode has to do it here
// so the first run on a fresh tree does not lose its writes.
func embedFiles(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, logger *zap.Logger, paths []string) int {
	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}
	total := 0
	for _, path := range paths {
		n, err := p.ProcessFile(ctx, path)
		if err != nil {
			logger.Error("file processing failed", zap.String("path", path), zap.Error(err))
			continue
		}
		total += n
	}
	return total
}

// readURLFile reads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func runScrape() {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	urlFile := fs.String("urls", "", "file with one URL per line")
	output := fs.String("output", "", "output mode: txt, csv, or json (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *output != "" {
		cfg.Scrape.Output = *output
	}

	urls := fs.Args()
	if *urlFile != "" {
		fromFile, err := readURLFile(*urlFile)
		if err != nil {
			logger.Fatal("Failed to read URL file", zap.String("path", *urlFile), zap.Error(err))
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		fmt.Println("Usage: atsumeru scrape [flags] <url> [url...]")
		fmt.Println("       atsumeru scrape --urls urls.txt")
		os.Exit(1)
	}

	s, err := scrape.NewScraper(&cfg.Scrape, scrape.WithScraperLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create scraper", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	saved, err := s.Run(ctx, urls)
	if err != nil {
		logger.Fatal("Scrape failed", zap.Error(err))
	}
	fmt.Printf("Saved %d page(s) to %s\n", saved, cfg.Scrape.OutputDir)
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	chunkSize := fs.Int("chunk-size", 0, "candidate chunk size in characters (default from config)")
	top := fs.Int("top", 5, "number of longest paragraphs to show")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: atsumeru analyze [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	size := *chunkSize
	if size <= 0 {
		size = cfg.Pipeline.ChunkSize
	}

	text, err := extract.NewExtractor().Extract(path)
	if err != nil {
		logger.Fatal("Extraction failed", zap.String("path", path), zap.Error(err))
	}
	paragraphs := segment.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		fmt.Println("No paragraphs found.")
		return
	}
	stats := segment.Analyze(paragraphs, size)

	fmt.Printf("paragraphs:             %d\n", len(paragraphs))
	fmt.Printf("avg_length:             %.1f\n", stats.AvgLength)
	fmt.Printf("min_length:             %d\n", stats.MinLength)
	fmt.Printf("max_length:             %d\n", stats.MaxLength)
	fmt.Printf("median_length:          %.1f\n", stats.MedianLength)
	fmt.Printf("exceeding_chunk_size:   %d   # longer than %d characters\n", stats.ExceedingChunkSize, size)
	fmt.Printf("recommended_chunk_size: %d\n", stats.RecommendedChunkSize)
	fmt.Printf("recommended_overlap:    %d\n", stats.RecommendedOverlap)

	longest := append([]string(nil), paragraphs...)
	sort.Slice(longest, func(i, j int) bool { return len(longest[i]) > len(longest[j]) })
	n := *top
	if n > len(longest) {
		n = len(longest)
	}
	fmt.Printf("\n# %d longest paragraphs\n", n)
	for i := 0; i < n; i++ {
		fmt.Printf("%d. (%d chars) %s\n", i+1, len(longest[i]), utils.Truncate(longest[i], 120))
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	sync := fs.Bool("sync", true, "process files already in the input directory on startup")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	p, err := pipeline.New(&cfg.Pipeline, extract.NewExtractor(), embedder, pipeline.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to create pipeline", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.Pipeline.OutputDir, 0o755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w := watcher.NewWatcher(
		cfg.Pipeline.InputDir,
		cfg.Pipeline.Extensions,
		func(path string) {
			if _, err := p.ProcessFile(ctx, path); err != nil {
				logger.Warn("watched file processing failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	if *sync {
		w.SyncExistingFiles()
	}

	logger.Info("watching for documents",
		zap.String("input", cfg.Pipeline.InputDir),
		zap.String("output", cfg.Pipeline.OutputDir),
	)
	<-ctx.Done()
	logger.Info("Shutting down...")
}

func printUsage() {
	fmt.Println(`atsumeru - Batch document embedding toolkit

Usage:
  atsumeru embed [flags] [file...]   Embed a folder of documents (or specific files)
  atsumeru scrape [flags] <url...>   Fetch web pages and save their text
  atsumeru analyze [flags] <file>    Report paragraph statistics for chunking
  atsumeru watch [flags]             Watch the input directory and embed new files
  atsumeru version                   Show version
  atsumeru help                      Show this help

Embed Flags:
  --config string    Config file path (default: /usr/local/etc/atsumeru/config.yaml)
  --debug            Enable debug logging
  --input string     Input directory (overrides config)
  --output string    Output directory (overrides config)
  --format string    Output format: npy, csv, or json (overrides config)

Scrape Flags:
  --config string    Config file path
  --debug            Enable debug logging
  --urls string      File with one URL per line (merged with positional URLs)
  --output string    Output mode: txt, csv, or json (overrides config)

Analyze Flags:
  --config string       Config file path
  --chunk-size int      Candidate chunk size in characters (default from config)
  --top int             Number of longest paragraphs to show (default: 5)

Watch Flags:
  --config string    Config file path
  --debug            Enable debug logging
  --sync             Process files already present on startup (default: true)

Examples:
  atsumeru embed
  atsumeru embed --format csv
  atsumeru embed Complete/report.pdf
  atsumeru scrape https://example.com/article
  atsumeru scrape --urls urls.txt --output json
  atsumeru analyze Complete/report.pdf
  atsumeru watch --debug`)
}
