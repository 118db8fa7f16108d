package interviewd

import (
	"context"
	"fmt"
	"sync/atomic"

	domsession "github.com/hireloop/interviewd/internal/domain/session"
	healthuc "github.com/hireloop/interviewd/internal/usecase/health"
	ingestuc "github.com/hireloop/interviewd/internal/usecase/ingest"
	interviewuc "github.com/hireloop/interviewd/internal/usecase/interview"
)

// --- provider mocks (public interfaces) ---

type mockEmbedder struct {
	fn    func(ctx context.Context, text string) (EmbeddingResult, error)
	calls atomic.Int64
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	m.calls.Add(1)
	return m.fn(ctx, text)
}

// constEmbedder returns a deterministic vector derived from the text length.
func constEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{
		fn: func(_ context.Context, text string) (EmbeddingResult, error) {
			vec := make([]float32, dim)
			for i := range vec {
				vec[i] = float32((len(text)+i)%7) + 1
			}
			return EmbeddingResult{Embedding: vec, TotalTokens: len(text)}, nil
		},
	}
}

type mockGenerator struct {
	n     atomic.Int64
	fn    func(ctx context.Context, prompt string) (GenerationResult, error)
	calls atomic.Int64
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (GenerationResult, error) {
	m.calls.Add(1)
	if m.fn != nil {
		return m.fn(ctx, prompt)
	}
	return GenerationResult{
		Text:        fmt.Sprintf("Question %d?", m.n.Add(1)),
		TotalTokens: 10,
	}, nil
}

// --- internal use-case mocks ---

type mockIngestUC struct {
	uploadFn func(ctx context.Context, filename, mimeType string, data []byte) (ingestuc.UploadResult, error)
}

func (m *mockIngestUC) Upload(ctx context.Context, filename, mimeType string, data []byte) (ingestuc.UploadResult, error) {
	return m.uploadFn(ctx, filename, mimeType, data)
}

type mockInterviewUC struct {
	startFn  func(ctx context.Context, sessionID string) (interviewuc.Question, error)
	submitFn func(ctx context.Context, sessionID, answer string) (interviewuc.SubmitResult, error)
	endFn    func(sessionID string) error
	statusFn func(sessionID string) (domsession.View, error)
	listFn   func() []domsession.View
}

func (m *mockInterviewUC) Start(ctx context.Context, sessionID string) (interviewuc.Question, error) {
	return m.startFn(ctx, sessionID)
}

func (m *mockInterviewUC) SubmitAnswer(ctx context.Context, sessionID, answer string) (interviewuc.SubmitResult, error) {
	return m.submitFn(ctx, sessionID, answer)
}

func (m *mockInterviewUC) End(sessionID string) error {
	return m.endFn(sessionID)
}

func (m *mockInterviewUC) Status(sessionID string) (domsession.View, error) {
	return m.statusFn(sessionID)
}

func (m *mockInterviewUC) List() []domsession.View {
	return m.listFn()
}

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}
