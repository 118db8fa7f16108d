// Package retrieval issues anchor and contextual queries against a session's
// vector index and ranks the results.
package retrieval

import (
	"context"
	"fmt"

	"github.com/hireloop/interviewd/internal/domain"
)

// anchorQuery seeds generic job-description context for the opening question.
const anchorQuery = "job responsibilities, required skills, qualifications, and experience"

// contextualPrefix turns a candidate answer into a JD-anchored follow-up query.
const contextualPrefix = "job responsibilities and skills related to: "

// maxAnswerQueryLen bounds how much of the answer feeds the follow-up query.
const maxAnswerQueryLen = 200

// DefaultK is the default number of chunks retrieved per turn.
const DefaultK = 3

// Service converts query text to a vector and delegates to the index.
type Service struct {
	embed Embedder
	k     int
}

// New creates a retrieval service. Non-positive k falls back to DefaultK.
func New(embed Embedder, k int) *Service {
	if k <= 0 {
		k = DefaultK
	}
	return &Service{embed: embed, k: k}
}

// AnchorContext retrieves generic requirement context for the first turn.
func (s *Service) AnchorContext(ctx context.Context, idx domain.VectorIndex) ([]domain.ScoredChunk, error) {
	return s.retrieve(ctx, idx, anchorQuery)
}

// AnswerContext retrieves context related to the candidate's latest answer so
// later questions track what was already said.
func (s *Service) AnswerContext(ctx context.Context, idx domain.VectorIndex, answer string) ([]domain.ScoredChunk, error) {
	return s.retrieve(ctx, idx, contextualPrefix+truncate(answer, maxAnswerQueryLen))
}

func (s *Service) retrieve(ctx context.Context, idx domain.VectorIndex, query string) ([]domain.ScoredChunk, error) {
	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	results, err := idx.Query(res.Embedding, s.k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
