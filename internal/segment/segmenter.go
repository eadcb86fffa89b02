// Package segment splits raw text into overlapping word-budgeted chunks for embedding.
package segment

import "strings"

// Segmenter packs separator-delimited segments of text into chunks of
// roughly ChunkSize words. Each chunk after the first starts with the last
// Overlap words of the previously closed chunk, so the overlap can span
// segment boundaries. Word count stands in for token count.
type Segmenter struct {
	separator string
	chunkSize int
	overlap   int
}

// NewSegmenter creates a segmenter. separator is matched literally; an empty
// separator defaults to a blank line. chunkSize and overlap are in words.
func NewSegmenter(separator string, chunkSize, overlap int) *Segmenter {
	if separator == "" {
		separator = "\n\n"
	}
	return &Segmenter{
		separator: separator,
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Segment splits text on the separator and accumulates the resulting
// segments into chunks. A segment whose own word count exceeds the chunk
// size is never split: it lands in a single chunk that may exceed the
// nominal budget. Empty or all-whitespace input yields nil.
func (s *Segmenter) Segment(text string) []string {
	var chunks []string
	current := ""
	currentLen := 0
	for _, seg := range strings.Split(text, s.separator) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		segLen := len(strings.Fields(seg))
		if currentLen+segLen > s.chunkSize && current != "" {
			chunks = append(chunks, current)
			current = s.seed(current, seg)
			currentLen = len(strings.Fields(current))
			continue
		}
		if current != "" {
			current += " " + seg
		} else {
			current = seg
		}
		currentLen += segLen
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// seed starts a new chunk buffer from the tail of the closed chunk followed
// by the next segment. Overlap <= 0 carries nothing forward; a closed chunk
// shorter than the overlap is carried whole.
func (s *Segmenter) seed(closed, next string) string {
	if s.overlap <= 0 {
		return next
	}
	words := strings.Fields(closed)
	if len(words) > s.overlap {
		words = words[len(words)-s.overlap:]
	}
	return strings.Join(words, " ") + " " + next
}
