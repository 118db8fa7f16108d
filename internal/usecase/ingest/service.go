// Package ingest runs the upload pipeline: text extraction, chunking, index
// construction and session creation. A failure anywhere aborts the pipeline
// with no session created.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/chunker"
	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/index"
)

// previewLen bounds the extracted-text preview returned to the caller.
const previewLen = 500

// UploadResult reports the created session and ingestion stats.
type UploadResult struct {
	SessionID   string
	ChunkCount  int
	TextPreview string
}

// Service builds a session from an uploaded document.
type Service struct {
	extractor    domain.Extractor
	embedder     domain.Embedder
	sessions     SessionRegistry
	chunks       *chunker.Chunker
	maxQuestions int
	dimension    int
	embedTimeout time.Duration
	logger       *zap.Logger
}

// New creates an ingest service. dimension > 0 enforces the configured
// embedding dimension at insert time; 0 accepts whatever the provider emits
// (the index still enforces a constant dimension within the session).
func New(
	extractor domain.Extractor,
	embedder domain.Embedder,
	sessions SessionRegistry,
	chunks *chunker.Chunker,
	maxQuestions, dimension int,
	logger *zap.Logger,
) *Service {
	if maxQuestions <= 0 {
		maxQuestions = 7
	}
	return &Service{
		extractor:    extractor,
		embedder:     embedder,
		sessions:     sessions,
		chunks:       chunks,
		maxQuestions: maxQuestions,
		dimension:    dimension,
		embedTimeout: 2 * time.Minute,
		logger:       logger,
	}
}

// WithEmbedTimeout bounds the index-build embedding calls.
func (s *Service) WithEmbedTimeout(d time.Duration) *Service {
	if d > 0 {
		s.embedTimeout = d
	}
	return s
}

// Upload extracts text from the payload, chunks it, embeds every chunk and
// registers a new session holding the built index.
func (s *Service) Upload(ctx context.Context, filename, mimeType string, data []byte) (UploadResult, error) {
	text, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		return UploadResult{}, fmt.Errorf("extract text: %w", err)
	}

	doc, err := domain.NewDocument(filename, text, len(data), time.Now())
	if err != nil {
		return UploadResult{}, err
	}

	chunks, err := s.chunks.Split(doc.Text())
	if err != nil {
		return UploadResult{}, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	batch, err := domain.EmbedAll(embedCtx, s.embedder, texts)
	if err != nil {
		return UploadResult{}, fmt.Errorf("embed chunks: %w", err)
	}

	if s.dimension > 0 {
		for i, v := range batch.Embeddings {
			if len(v) != s.dimension {
				return UploadResult{}, fmt.Errorf(
					"chunk %d embedded with dimension %d, configured %d: %w",
					i, len(v), s.dimension, domain.ErrVectorDimMismatch,
				)
			}
		}
	}

	idx, err := index.Build(chunks, batch.Embeddings)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build index: %w", err)
	}

	sess := s.sessions.Create(doc, idx, s.maxQuestions)

	s.logger.Info("document ingested",
		zap.String("session_id", sess.ID()),
		zap.String("source", doc.SourceName()),
		zap.Int("bytes", doc.ByteSize()),
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", idx.Dimension()),
		zap.Int("embedding_tokens", batch.TotalTokens),
	)

	return UploadResult{
		SessionID:   sess.ID(),
		ChunkCount:  len(chunks),
		TextPreview: preview(doc.Text()),
	}, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
