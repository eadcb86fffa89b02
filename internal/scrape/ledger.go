package scrape

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Ledger records processed URLs in a plain text file, one per line. It is
// the scraper's resume signal: listed URLs are skipped on later runs.
type Ledger struct {
	path string
}

// NewLedger creates a ledger backed by the file at path. The file is
// created on first append.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Load returns the set of recorded URLs. A missing file yields an empty
// set, not an error.
func (l *Ledger) Load() (map[string]bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			seen[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return seen, nil
}

// Append records url as processed.
func (l *Ledger) Append(url string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, url); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}
