// Package sink persists embedding vectors to disk in NPY, CSV, or JSON form.
package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Format identifies an output encoding for embedding vectors.
type Format string

const (
	FormatNPY  Format = "npy"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatNPY, FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported save format %q", s)
	}
}

// OutputPath returns the deterministic destination for a file's embeddings:
// <dir>/<stem>_embeddings.<ext>. The path is a pure function of the input
// filename, which is what keeps concurrent per-file writes collision-free
// and makes existence of the file a valid skip signal.
func OutputPath(dir, stem string, f Format) string {
	return filepath.Join(dir, fmt.Sprintf("%s_embeddings.%s", stem, f))
}

// Write encodes vectors in the given format and writes them to path
// all-or-nothing: the payload goes to a temp file in the same directory and
// is renamed into place, so a failed write never leaves a partial output
// that would satisfy the skip check.
func Write(vectors [][]float32, path string, f Format) error {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatNPY:
		err = writeNPY(&buf, vectors)
	case FormatCSV:
		err = writeCSV(&buf, vectors)
	case FormatJSON:
		err = writeJSON(&buf, vectors)
	default:
		return fmt.Errorf("unsupported save format %q", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
