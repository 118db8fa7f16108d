package domain

import "context"

// Extractor converts an uploaded document into plain text. Implementations
// own format detection; the rest of the system only sees the extracted string.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}
