// Package extract provides text extraction from plain text and PDF files.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedKind is returned when a file's format has no extraction strategy.
var ErrUnsupportedKind = errors.New("unsupported file kind")

// Kind identifies the extraction strategy for a file. The set is closed:
// callers resolve a Kind once per file and branch on it, rather than
// re-testing extensions downstream.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPlainText
	KindPDF
)

// String returns a human-readable name for logging.
func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plaintext"
	case KindPDF:
		return "pdf"
	default:
		return "unsupported"
	}
}

// KindForPath resolves the extraction kind from the file extension
// (case-insensitive).
func KindForPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".rst":
		return KindPlainText
	case ".pdf":
		return KindPDF
	default:
		return KindUnsupported
	}
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content. Plain text is
// sanitized to valid UTF-8; PDF text is pulled per page. A readable file
// with no recoverable text yields an empty string, not an error.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, KindForPath(path))
}

// ExtractBytes extracts text from content using the strategy for kind.
func (e *Extractor) ExtractBytes(content []byte, kind Kind) (string, error) {
	switch kind {
	case KindPDF:
		return extractPDF(content)
	case KindPlainText:
		return extractPlain(content)
	default:
		return "", ErrUnsupportedKind
	}
}
