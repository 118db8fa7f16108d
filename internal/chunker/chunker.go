// Package chunker splits extracted document text into overlapping
// fixed-size segments for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hireloop/interviewd/internal/domain"
)

const (
	// DefaultSize is the default chunk size in characters.
	DefaultSize = 500
	// DefaultOverlap is the default overlap between consecutive chunks.
	DefaultOverlap = 100
)

// Chunker produces sliding-window chunks. Splitting is by character count,
// not token or sentence boundaries, so the output is deterministic and
// language-agnostic.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive size falls back to DefaultSize;
// overlap is clamped below size so the window always advances.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into chunks of at most size characters, each overlapping
// the previous by overlap characters. Text of length <= size yields exactly
// one chunk. Empty or whitespace-only text is rejected with ErrEmptyInput.
func (c *Chunker) Split(text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunk: %w", domain.ErrEmptyInput)
	}

	runes := []rune(text)
	step := c.size - c.overlap

	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			Ordinal: len(chunks),
			Text:    string(runes[start:end]),
			Start:   start,
			End:     end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }
