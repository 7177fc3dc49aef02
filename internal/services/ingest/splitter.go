package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// separators in order of preference: paragraph, line, sentence, word, then a hard cut
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into overlapping chunks of at most ChunkSize characters,
// breaking on the coarsest boundary that fits.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter. Overlap must be smaller than the chunk size.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Split returns the trimmed, non-empty chunks of text in order
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks []string
	var small []string
	for _, piece := range splitKeep(text, sep) {
		if length(piece) < s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			if c := strings.TrimSpace(piece); c != "" {
				chunks = append(chunks, c)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small)...)
	}
	return chunks
}

// merge packs consecutive pieces into chunks, carrying up to chunkOverlap
// characters of trailing pieces into the next chunk
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := length(piece)
		if total+n > s.chunkSize && len(window) > 0 {
			if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
				chunks = append(chunks, c)
			}
			for len(window) > 0 && (total > s.chunkOverlap || total+n > s.chunkSize) {
				total -= length(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}

	if c := strings.TrimSpace(strings.Join(window, "")); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitKeep splits text on sep, keeping the separator at the end of each piece.
// An empty separator splits into single characters.
func splitKeep(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
