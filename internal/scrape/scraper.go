package scrape

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/atsumeru/internal/config"
)

// Scraper fetches a batch of URLs and persists the extracted pages. URLs
// already recorded in the ledger are skipped, so a run can be resumed or
// re-fed the same list safely.
type Scraper struct {
	cfg    *config.ScrapeConfig
	client *Client
	ledger *Ledger
	output Output
	logger *zap.Logger
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithScraperLogger sets a logger for scrape progress.
func WithScraperLogger(l *zap.Logger) ScraperOption {
	return func(s *Scraper) { s.logger = l }
}

// NewScraper creates a scraper from config. The output directory is
// created if missing.
func NewScraper(cfg *config.ScrapeConfig, opts ...ScraperOption) (*Scraper, error) {
	output, err := ParseOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	s := &Scraper{
		cfg:    cfg,
		ledger: NewLedger(cfg.ProcessedFile),
		output: output,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = NewClient(cfg.Timeout(), WithLogger(s.logger))
	return s, nil
}

// Run fetches every URL not yet in the ledger and saves the result. The
// input list is deduplicated first. Failed fetches and empty pages are
// logged and skipped; only saved pages are recorded as processed. Returns
// the number of pages saved.
func (s *Scraper) Run(ctx context.Context, urls []string) (int, error) {
	seen, err := s.ledger.Load()
	if err != nil {
		return 0, err
	}

	saved := 0
	queued := map[string]bool{}
	for _, u := range urls {
		if u == "" || queued[u] {
			continue
		}
		queued[u] = true
		if seen[u] {
			s.logger.Debug("already processed", zap.String("url", u))
			continue
		}
		if err := ctx.Err(); err != nil {
			return saved, err
		}

		page, err := s.client.FetchPage(ctx, u)
		if err != nil {
			s.logger.Warn("fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if page.Empty() {
			s.logger.Warn("page has no content", zap.String("url", u))
			continue
		}

		if err := s.save(page); err != nil {
			s.logger.Warn("save failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if err := s.ledger.Append(u); err != nil {
			return saved, err
		}
		saved++
		s.logger.Info("page saved",
			zap.String("url", u),
			zap.String("title", page.Title),
			zap.Int("images", len(page.Images)))
	}

	s.logger.Info("scrape complete", zap.Int("saved", saved), zap.Int("requested", len(queued)))
	return saved, nil
}

func (s *Scraper) save(page *Page) error {
	switch s.output {
	case OutputText:
		_, err := SaveText(page, s.cfg.OutputDir)
		return err
	case OutputCSV:
		path := filepath.Join(s.cfg.OutputDir, s.cfg.Dataset+".csv")
		return AppendCSV([]*Page{page}, path, s.cfg.Dataset)
	case OutputJSON:
		_, err := SaveJSON(page, s.cfg.OutputDir, s.cfg.Dataset)
		return err
	default:
		return fmt.Errorf("unsupported scrape output %q", s.output)
	}
}
