// Package scrape fetches web pages and reduces them to clean text for the
// embedding pipeline.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const userAgent = "Mozilla/5.0 (compatible; AtsumeruBot/1.0)"

// Page holds the extracted content of one fetched web page.
type Page struct {
	URL    string
	Title  string
	Text   string
	Images []Image
}

// Image describes one <img> occurrence on a page.
type Image struct {
	Src string
	Alt string
}

// Empty reports whether the page carries neither a title nor text.
func (p *Page) Empty() bool {
	return p.Title == "" && p.Text == ""
}

// Client fetches pages over HTTP.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for fetch events.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a page fetcher with the given per-request timeout.
func NewClient(timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http:   &http.Client{Timeout: timeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage retrieves url and parses its HTML into a Page. Non-2xx
// responses are errors.
func (c *Client) FetchPage(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("page fetched", zap.String("url", url), zap.Int("bytes", len(body)))
	return ParseHTML(url, string(body)), nil
}
