// Package chunker splits raw text into bounded, overlapping segments
// suitable for embedding.
package chunker

import (
	"errors"
	"strings"
)

var ErrEmptyText = errors.New("text is empty")

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// separators are tried in priority order when looking for a cut point:
// paragraph, line, sentence enders (CJK and Latin), clause enders, word.
var separators = []string{
	"\n\n",
	"\n",
	"。", "！", "？",
	". ", "! ", "? ",
	"；", "; ",
	" ",
}

type Splitter struct {
	chunkSize int
	overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if overlap <= 0 {
		overlap = DefaultOverlap
	}

	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Split cuts text into chunks of at most chunkSize runes, preferring the
// highest-priority boundary marker inside each window and carrying overlap
// runes into the next chunk. Whitespace-only candidates are dropped.
// The result is deterministic for a given input and configuration.
func (s *Splitter) Split(text string) ([]string, error) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return nil, ErrEmptyText
	}

	runes := []rune(normalized)
	if len(runes) <= s.chunkSize {
		return []string{normalized}, nil
	}

	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.cut(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := end - s.overlap
		if next <= start {
			next = end
		}

		start = next
	}

	return chunks, nil
}

// cut finds the end of the last boundary marker within runes[start:limit],
// falling back to a hard cut at limit. Markers too close to start are
// ignored so chunks keep a useful size.
func (s *Splitter) cut(runes []rune, start, limit int) int {
	min := start + s.chunkSize/2

	for _, sep := range separators {
		idx := lastIndexRunes(runes[start:limit], []rune(sep))
		if idx < 0 {
			continue
		}

		end := start + idx + len([]rune(sep))
		if end <= min {
			continue
		}

		return end
	}

	return limit
}

func lastIndexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}

	for i := len(haystack) - len(needle); i >= 0; i-- {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}

		if match {
			return i
		}
	}

	return -1
}
