// Package extract converts uploaded document bytes into plain text.
package extract

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/hireloop/interviewd/internal/domain"
)

// TextExtractor handles plain-text and markdown uploads. Other formats are
// rejected with domain.ErrUnsupportedFormat.
type TextExtractor struct{}

// NewTextExtractor creates a plain-text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// supported lists the accepted media types (parameters stripped).
var supported = map[string]struct{}{
	"text/plain":    {},
	"text/markdown": {},
	"":              {}, // unspecified uploads are treated as plain text
}

// Extract implements domain.Extractor.
func (x *TextExtractor) Extract(_ context.Context, data []byte, mimeType string) (string, error) {
	mediaType := mimeType
	if mimeType != "" {
		parsed, _, err := mime.ParseMediaType(mimeType)
		if err != nil {
			return "", fmt.Errorf("malformed content type %q: %w", mimeType, domain.ErrUnsupportedFormat)
		}
		mediaType = parsed
	}

	if _, ok := supported[mediaType]; !ok {
		return "", fmt.Errorf("content type %q: %w", mediaType, domain.ErrUnsupportedFormat)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid UTF-8: %w", domain.ErrUnsupportedFormat)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", domain.ErrEmptyInput
	}

	return text, nil
}
