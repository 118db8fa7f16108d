package interview

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/domain/session"
	"github.com/hireloop/interviewd/internal/prompt"
)

// --- Mocks ---

type stubIndex struct{}

func (stubIndex) Query(_ []float32, _ int) ([]domain.ScoredChunk, error) { return nil, nil }
func (stubIndex) Dimension() int                                         { return 2 }
func (stubIndex) Len() int                                               { return 5 }

type mockStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	deleted  []string
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]*session.Session)}
}

func (m *mockStore) add(s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

func (m *mockStore) Get(id string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.deleted = append(m.deleted, id)
}

func (m *mockStore) List() []*session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

type mockRetriever struct {
	mu      sync.Mutex
	results []domain.ScoredChunk
	errs    []error // consumed per call; nil past the end
	calls   int
}

func (m *mockRetriever) next() error {
	if m.calls-1 < len(m.errs) {
		return m.errs[m.calls-1]
	}
	return nil
}

func (m *mockRetriever) AnchorContext(_ context.Context, _ domain.VectorIndex) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.next(); err != nil {
		return nil, err
	}
	return m.results, nil
}

func (m *mockRetriever) AnswerContext(_ context.Context, _ domain.VectorIndex, _ string) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.next(); err != nil {
		return nil, err
	}
	return m.results, nil
}

type mockGenerator struct {
	mu        sync.Mutex
	responses []string // consumed per call; last one repeats
	errs      []error  // consumed per call; nil past the end
	calls     int
	prompts   []string
	block     chan struct{} // when set, Generate waits for a signal
}

func (m *mockGenerator) Generate(ctx context.Context, p string) (domain.GenerationResult, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.prompts = append(m.prompts, p)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return domain.GenerationResult{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if call-1 < len(m.errs) && m.errs[call-1] != nil {
		return domain.GenerationResult{}, m.errs[call-1]
	}
	text := ""
	if len(m.responses) > 0 {
		i := call - 1
		if i >= len(m.responses) {
			i = len(m.responses) - 1
		}
		text = m.responses[i]
	}
	return domain.GenerationResult{Text: text, TotalTokens: 10}, nil
}

// --- Fixtures ---

func defaultChunks() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: domain.Chunk{Ordinal: 0, Text: "Go services"}, Score: 0.9},
		{Chunk: domain.Chunk{Ordinal: 1, Text: "Kubernetes"}, Score: 0.8},
	}
}

func newTestSession(t *testing.T, id string, maxQuestions int) *session.Session {
	t.Helper()
	doc, err := domain.NewDocument("jd.txt", "job description", 0, time.Now())
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return session.New(id, doc, stubIndex{}, maxQuestions, time.Now())
}

// newTestService wires a service with fast retry timings for tests.
func newTestService(store *mockStore, ret *mockRetriever, gen *mockGenerator) *Service {
	return New(store, ret, gen, prompt.New(10), zap.NewNop()).
		WithRetry(3, time.Millisecond).
		WithProviderTimeout(time.Second)
}

// questionTexts produces n distinct generator responses.
func questionTexts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Question number %d?", i+1)
	}
	return out
}
