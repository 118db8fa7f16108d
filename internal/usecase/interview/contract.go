package interview

import (
	"context"

	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/domain/session"
)

// SessionStore is the registry of active sessions.
type SessionStore interface {
	Get(id string) (*session.Session, error)
	Delete(id string)
	List() []*session.Session
}

// Retriever fetches context chunks from a session's index.
type Retriever interface {
	AnchorContext(ctx context.Context, idx domain.VectorIndex) ([]domain.ScoredChunk, error)
	AnswerContext(ctx context.Context, idx domain.VectorIndex, answer string) ([]domain.ScoredChunk, error)
}

// Generator produces free-form text from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
