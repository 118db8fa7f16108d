package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document holds the extracted text of an uploaded job description
// (immutable value object, owned by the session that created it).
type Document struct {
	sourceName  string
	text        string
	byteSize    int
	extractedAt time.Time
}

// NewDocument validates and creates a Document. Text must contain at least
// one non-whitespace character.
func NewDocument(sourceName, text string, byteSize int, extractedAt time.Time) (Document, error) {
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("document %q has no text: %w", sourceName, ErrEmptyInput)
	}
	if byteSize <= 0 {
		byteSize = len(text)
	}
	return Document{
		sourceName:  sourceName,
		text:        text,
		byteSize:    byteSize,
		extractedAt: extractedAt,
	}, nil
}

// SourceName returns the original upload filename.
func (d *Document) SourceName() string { return d.sourceName }

// Text returns the extracted plain text.
func (d *Document) Text() string { return d.text }

// ByteSize returns the size of the uploaded payload in bytes.
func (d *Document) ByteSize() int { return d.byteSize }

// ExtractedAt returns the extraction timestamp.
func (d *Document) ExtractedAt() time.Time { return d.extractedAt }
