package segment

import (
	"regexp"
	"sort"
	"strings"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n+`)

// SplitParagraphs splits text on runs of blank lines and drops
// whitespace-only paragraphs.
func SplitParagraphs(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// Stats summarizes the paragraph length distribution of a document, used to
// pick chunking parameters before a long embedding run.
type Stats struct {
	AvgLength            float64
	MinLength            int
	MaxLength            int
	MedianLength         float64
	ExceedingChunkSize   int
	RecommendedChunkSize int
	RecommendedOverlap   int
}

// Analyze computes length statistics over paragraphs (in characters) against
// a candidate chunk size. The recommended chunk size is the 90th percentile
// of paragraph lengths; the recommended overlap is a quarter of that.
// Returns the zero Stats when paragraphs is empty.
func Analyze(paragraphs []string, chunkSize int) Stats {
	if len(paragraphs) == 0 {
		return Stats{}
	}
	lengths := make([]int, len(paragraphs))
	sum := 0
	for i, p := range paragraphs {
		lengths[i] = len(p)
		sum += lengths[i]
	}
	sort.Ints(lengths)

	exceeding := 0
	for _, l := range lengths {
		if l > chunkSize {
			exceeding++
		}
	}

	recommended := int(percentile(lengths, 90))
	return Stats{
		AvgLength:            float64(sum) / float64(len(lengths)),
		MinLength:            lengths[0],
		MaxLength:            lengths[len(lengths)-1],
		MedianLength:         percentile(lengths, 50),
		ExceedingChunkSize:   exceeding,
		RecommendedChunkSize: recommended,
		RecommendedOverlap:   recommended / 4,
	}
}

// percentile returns the p-th percentile of sorted values using linear
// interpolation between closest ranks.
func percentile(sorted []int, p float64) float64 {
	if len(sorted) == 1 {
		return float64(sorted[0])
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return float64(sorted[len(sorted)-1])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[hi]-sorted[lo])
}
