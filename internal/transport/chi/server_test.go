package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/chunker"
	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/prompt"
	sessionrepo "github.com/hireloop/interviewd/internal/repository/session"
	"github.com/hireloop/interviewd/internal/transport/extract"
	healthuc "github.com/hireloop/interviewd/internal/usecase/health"
	ingestuc "github.com/hireloop/interviewd/internal/usecase/ingest"
	interviewuc "github.com/hireloop/interviewd/internal/usecase/interview"
	retrievaluc "github.com/hireloop/interviewd/internal/usecase/retrieval"
)

// --- Fakes ---

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	// Deterministic 4-dim vector derived from the text so index queries work.
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r%13) / 13
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: 3}, nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *fakeGenerator) Generate(_ context.Context, _ string) (domain.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return domain.GenerationResult{
		Text:        fmt.Sprintf("Interview question number %d?", g.calls),
		TotalTokens: 10,
	}, nil
}

func newTestServer(t *testing.T, maxQuestions int) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	sessions := sessionrepo.New(time.Hour, logger)
	emb := fakeEmbedder{}

	ingestSvc := ingestuc.New(
		extract.NewTextExtractor(), emb, sessions,
		chunker.New(80, 20), maxQuestions, 0, logger,
	)
	interviewSvc := interviewuc.New(
		sessions,
		retrievaluc.New(emb, 3),
		&fakeGenerator{},
		prompt.New(10),
		logger,
	).WithRetry(1, time.Millisecond)
	healthSvc := healthuc.New(nil, nil, nil)

	server := NewServer(ingestSvc, interviewSvc, healthSvc, logger)
	r := chi.NewRouter()
	server.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func uploadJD(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	jd := strings.Repeat("Senior Go engineer. Kubernetes, gRPC, PostgreSQL. ", 8)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/interviews", strings.NewReader(jd))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	var body UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if body.SessionID == "" {
		t.Fatal("empty session_id")
	}
	if body.ChunkCount < 2 {
		t.Errorf("chunk_count = %d", body.ChunkCount)
	}
	return body.SessionID
}

// --- Tests ---

func TestCreateInterview_PlainText(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/interviews/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "INIT" {
		t.Errorf("status field: %v", body["status"])
	}
}

func TestCreateInterview_UnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, 3)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/interviews", strings.NewReader("%PDF-1.4"))
	req.Header.Set("Content-Type", "application/pdf")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", resp.StatusCode)
	}
}

func TestCreateInterview_EmptyDocument(t *testing.T) {
	ts := newTestServer(t, 3)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/interviews", strings.NewReader("   \n "))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestInterviewFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	// Start
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/start", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	if body["question_number"].(float64) != 1 || body["total_questions"].(float64) != 3 {
		t.Errorf("start position: %v of %v", body["question_number"], body["total_questions"])
	}
	if body["question"] == "" {
		t.Error("empty opening question")
	}

	// Two more questions
	for i := 2; i <= 3; i++ {
		resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/answers",
			fmt.Sprintf(`{"answer":"detailed answer %d"}`, i))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("answer %d status = %d", i, resp.StatusCode)
		}
		if body["complete"].(bool) {
			t.Fatalf("complete too early at %d", i)
		}
		if body["question_number"].(float64) != float64(i) {
			t.Errorf("question_number = %v, want %d", body["question_number"], i)
		}
	}

	// Final answer completes the interview
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/answers",
		`{"answer":"my final answer"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("final answer status = %d", resp.StatusCode)
	}
	if body["complete"] != true {
		t.Fatal("expected completion")
	}
	if !strings.Contains(body["message"].(string), "Thank you") {
		t.Errorf("message: %v", body["message"])
	}

	// Status reflects completion
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/v1/interviews/"+id, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "COMPLETED" {
		t.Errorf("session status: %v", body["status"])
	}
}

func TestStartInterview_Twice(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/start", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first start = %d", resp.StatusCode)
	}
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/start", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second start = %d, want 409", resp.StatusCode)
	}
	if body["code"] != string(CodeInvalidState) {
		t.Errorf("code: %v", body["code"])
	}
	if body["status"] != "IN_PROGRESS" {
		t.Errorf("conflicting status: %v", body["status"])
	}
}

func TestStartInterview_UnknownSession(t *testing.T) {
	ts := newTestServer(t, 3)

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/does-not-exist/start", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body["code"] != string(CodeSessionNotFound) {
		t.Errorf("code: %v", body["code"])
	}
}

func TestSubmitAnswer_Blank(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	if resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/start", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("start = %d", resp.StatusCode)
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/answers", `{"answer":"   "}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("blank answer status = %d, want 422", resp.StatusCode)
	}
}

func TestSubmitAnswer_MalformedBody(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/v1/interviews/"+id+"/answers", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEndInterview_IdempotentDelete(t *testing.T) {
	ts := newTestServer(t, 3)
	id := uploadJD(t, ts)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/interviews/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	// Second delete is still 204.
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("second delete status = %d", resp.StatusCode)
	}

	// Ended session is gone.
	getResp, _ := doJSON(t, http.MethodGet, ts.URL+"/v1/interviews/"+id, "")
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("get after end = %d, want 404", getResp.StatusCode)
	}
}

func TestListInterviews(t *testing.T) {
	ts := newTestServer(t, 3)
	uploadJD(t, ts)
	uploadJD(t, ts)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/v1/interviews", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["total"].(float64) != 2 {
		t.Errorf("total: %v", body["total"])
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, 3)

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("health status: %v", body["status"])
	}
}

func TestCreateInterview_Multipart(t *testing.T) {
	ts := newTestServer(t, 3)

	var buf strings.Builder
	boundary := "testboundary42"
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="file"; filename="jd.txt"` + "\r\n")
	buf.WriteString("Content-Type: text/plain\r\n\r\n")
	buf.WriteString(strings.Repeat("Backend role requiring Go and distributed systems. ", 6))
	buf.WriteString("\r\n--" + boundary + "--\r\n")

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/interviews", strings.NewReader(buf.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("multipart upload status = %d", resp.StatusCode)
	}

	var body UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID == "" {
		t.Error("empty session_id")
	}
}
