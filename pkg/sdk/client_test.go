package interviewd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hireloop/interviewd/internal/domain"
	domsession "github.com/hireloop/interviewd/internal/domain/session"
	healthuc "github.com/hireloop/interviewd/internal/usecase/health"
	ingestuc "github.com/hireloop/interviewd/internal/usecase/ingest"
)

const jobDescription = `We are hiring a backend engineer to build and operate
our payments platform. You will design Go services, own PostgreSQL schemas,
tune Redis caches and keep our Kafka pipelines healthy. Experience with
observability tooling and incident response is a strong plus.`

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()

	base := []Option{
		WithEmbedder(constEmbedder(4)),
		WithGenerator(&mockGenerator{}),
		WithMaxQuestions(2),
		WithChunking(40, 10),
		WithRetry(1, time.Millisecond),
	}
	client, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithGenerator(&mockGenerator{}))
	if err == nil {
		t.Fatal("expected error when no embedder provided")
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(constEmbedder(4)))
	if err == nil {
		t.Fatal("expected error when no generator provided")
	}
}

func TestClient_FullInterview(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	up, err := client.Upload(ctx, "backend.md", "text/markdown", []byte(jobDescription))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if up.ChunkCount < 2 {
		t.Errorf("ChunkCount = %d, want >= 2", up.ChunkCount)
	}
	if up.TextPreview == "" {
		t.Error("expected a text preview")
	}

	q, err := client.Start(ctx, up.SessionID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if q.Text == "" || q.Number != 1 || q.Total != 2 {
		t.Fatalf("unexpected opening question: %+v", q)
	}

	res, err := client.Answer(ctx, up.SessionID, "I have built Go services for five years.")
	if err != nil {
		t.Fatalf("Answer 1: %v", err)
	}
	if res.Complete {
		t.Fatal("interview completed after one answer, want a follow-up")
	}
	if res.Question == "" || res.Number != 2 {
		t.Fatalf("unexpected follow-up: %+v", res)
	}

	res, err = client.Answer(ctx, up.SessionID, "I ran the on-call rotation for payments.")
	if err != nil {
		t.Fatalf("Answer 2: %v", err)
	}
	if !res.Complete {
		t.Fatal("expected completion after the question budget")
	}
	if res.Message == "" {
		t.Error("expected closing remarks on completion")
	}

	view, err := client.Status(up.SessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Status != "COMPLETED" {
		t.Errorf("Status = %q, want COMPLETED", view.Status)
	}
	if view.QuestionsAsked != 2 {
		t.Errorf("QuestionsAsked = %d, want 2", view.QuestionsAsked)
	}
}

func TestClient_AnswerRejectsBlank(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	up, err := client.Upload(ctx, "jd.txt", "text/plain", []byte(jobDescription))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := client.Start(ctx, up.SessionID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err = client.Answer(ctx, up.SessionID, "   ")
	if !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestClient_EndIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	up, err := client.Upload(ctx, "jd.txt", "text/plain", []byte(jobDescription))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := client.End(up.SessionID); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := client.End(up.SessionID); err != nil {
		t.Fatalf("second End: %v", err)
	}
	if err := client.End("no-such-session"); err != nil {
		t.Fatalf("End unknown session: %v", err)
	}
}

func TestClient_UnsupportedFormat(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Upload(context.Background(), "jd.pdf", "application/pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestClient_Sessions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("jd-%d.txt", i)
		if _, err := client.Upload(ctx, name, "text/plain", []byte(jobDescription)); err != nil {
			t.Fatalf("Upload %d: %v", i, err)
		}
	}

	views := client.Sessions()
	if len(views) != 3 {
		t.Fatalf("Sessions len = %d, want 3", len(views))
	}
	for _, v := range views {
		if v.Status != "INIT" {
			t.Errorf("Status = %q, want INIT", v.Status)
		}
		if v.TotalQuestions != 2 {
			t.Errorf("TotalQuestions = %d, want 2", v.TotalQuestions)
		}
	}
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t)

	h := client.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("Status = %q, want ok", h.Status)
	}
	if h.Checks["embedding"] != "ok" || h.Checks["generation"] != "ok" {
		t.Errorf("unexpected checks: %v", h.Checks)
	}
	if _, ok := h.Checks["cache"]; ok {
		t.Error("cache check present without a configured cache")
	}
}

func TestEmbedderAdapter(t *testing.T) {
	mock := constEmbedder(3)
	adapter := &embedderAdapter{inner: mock}

	result, err := adapter.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls.Load() != 1 {
		t.Error("inner embedder was not called")
	}
	if len(result.Embedding) != 3 {
		t.Errorf("embedding len = %d, want 3", len(result.Embedding))
	}
}

func TestEmbedderAdapter_BatchFallback(t *testing.T) {
	// mockEmbedder does not implement BatchEmbedder, so the adapter must
	// fall back to one Embed call per text.
	mock := constEmbedder(3)
	adapter := &embedderAdapter{inner: mock}

	res, err := adapter.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("embeddings len = %d, want 3", len(res.Embeddings))
	}
	if mock.calls.Load() != 3 {
		t.Errorf("inner calls = %d, want 3", mock.calls.Load())
	}
}

func TestGeneratorAdapter_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	gen := &mockGenerator{
		fn: func(_ context.Context, _ string) (GenerationResult, error) {
			return GenerationResult{}, boom
		},
	}

	_, err := (&generatorAdapter{inner: gen}).Generate(context.Background(), "p")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestObserver_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	notFound := fmt.Errorf("status: %w", domain.ErrSessionNotFound)

	obs.observe("status", time.Now(), nil)
	obs.observe("status", time.Now(), notFound)

	ok := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("status", "ok"))
	failed := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("status", "error"))
	if ok != 1 || failed != 1 {
		t.Errorf("operations ok=%v error=%v, want 1 and 1", ok, failed)
	}
}

func TestRegisterOrReuse_SecondClientSharesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := newClientMetrics(reg)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := newClientMetrics(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}

	first.operations.WithLabelValues("upload", "ok").Inc()
	second.operations.WithLabelValues("upload", "ok").Inc()

	got := testutil.ToFloat64(first.operations.WithLabelValues("upload", "ok"))
	if got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

func TestClient_StatusConvertsView(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := &Client{
		interviewSvc: &mockInterviewUC{
			statusFn: func(sessionID string) (domsession.View, error) {
				return domsession.View{
					ID:            sessionID,
					SourceName:    "jd.txt",
					Status:        domsession.StatusInProgress,
					QuestionCount: 4,
					MaxQuestions:  7,
					CreatedAt:     created,
				}, nil
			},
		},
	}

	view, err := client.Status("sess-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := SessionView{
		SessionID:      "sess-1",
		SourceName:     "jd.txt",
		Status:         "IN_PROGRESS",
		QuestionsAsked: 4,
		TotalQuestions: 7,
		CreatedAt:      created,
	}
	if view != want {
		t.Errorf("view = %+v, want %+v", view, want)
	}
}

func TestClient_HealthConvertsReport(t *testing.T) {
	client := &Client{
		healthSvc: &mockHealthUC{
			checkFn: func(context.Context) healthuc.Report {
				return healthuc.Report{
					Status: healthuc.Degraded,
					Checks: map[string]healthuc.CheckResult{
						"embedding":  healthuc.CheckOK,
						"generation": healthuc.CheckError,
					},
				}
			},
		},
	}

	h := client.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", h.Status)
	}
	if h.Checks["generation"] != "error" {
		t.Errorf("generation check = %q, want error", h.Checks["generation"])
	}
}

func TestClient_UploadWrapsSentinel(t *testing.T) {
	client := &Client{
		ingestSvc: &mockIngestUC{
			uploadFn: func(context.Context, string, string, []byte) (ingestuc.UploadResult, error) {
				return ingestuc.UploadResult{}, fmt.Errorf("extract: %w", domain.ErrEmptyInput)
			},
		},
	}

	_, err := client.Upload(context.Background(), "jd.txt", "text/plain", nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "upload:") {
		t.Errorf("expected upload prefix, got %q", err)
	}
}
