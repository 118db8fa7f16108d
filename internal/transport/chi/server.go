// Package chi exposes the interview API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/domain/session"
	healthuc "github.com/hireloop/interviewd/internal/usecase/health"
	ingestuc "github.com/hireloop/interviewd/internal/usecase/ingest"
	interviewuc "github.com/hireloop/interviewd/internal/usecase/interview"
)

// maxUploadBytes caps the uploaded document size.
const maxUploadBytes = 10 << 20

// ErrorCode identifies an API error class for clients.
type ErrorCode string

const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeUnsupportedFormat     ErrorCode = "unsupported_format"
	CodeSessionNotFound       ErrorCode = "session_not_found"
	CodeInvalidState          ErrorCode = "invalid_state"
	CodeDuplicateQuestion     ErrorCode = "duplicate_question"
	CodeEmbeddingUnavailable  ErrorCode = "embedding_provider_error"
	CodeGenerationUnavailable ErrorCode = "generation_provider_error"
	CodeProviderTimeout       ErrorCode = "provider_timeout"
	CodeInternalError         ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the usecase services.
type Server struct {
	ingest        *ingestuc.Service
	interviews    *interviewuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	interviews *interviewuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:     ingest,
		interviews: interviews,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		invalidStateHandler,
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrEmptyInput, http.StatusUnprocessableEntity, CodeValidationFailed),
		sentinelHandler(domain.ErrEmptyAnswer, http.StatusUnprocessableEntity, CodeValidationFailed),
		// Timeout outranks the provider sentinels: a timed-out call wraps both.
		sentinelHandler(domain.ErrProviderTimeout, http.StatusGatewayTimeout, CodeProviderTimeout),
		sentinelHandler(domain.ErrDuplicateQuestion, http.StatusBadGateway, CodeDuplicateQuestion),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGenerationUnavailable, http.StatusBadGateway, CodeGenerationUnavailable),
	}
	return s
}

// Routes mounts all API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1/interviews", func(r chi.Router) {
		r.Post("/", s.CreateInterview)
		r.Get("/", s.ListInterviews)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetInterview)
			r.Delete("/", s.EndInterview)
			r.Post("/start", s.StartInterview)
			r.Post("/answers", s.SubmitAnswer)
		})
	})
}

// UploadResponse reports the created session.
type UploadResponse struct {
	SessionID   string `json:"session_id"`
	ChunkCount  int    `json:"chunk_count"`
	TextPreview string `json:"text_preview"`
}

// QuestionResponse carries one interviewer question and its position.
type QuestionResponse struct {
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

// AnswerRequest is the body of POST /v1/interviews/{id}/answers.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// AnswerResponse is either the next question or the completion notice.
type AnswerResponse struct {
	Complete       bool   `json:"complete"`
	Question       string `json:"question,omitempty"`
	QuestionNumber int    `json:"question_number,omitempty"`
	TotalQuestions int    `json:"total_questions,omitempty"`
	Message        string `json:"message,omitempty"`
}

// SessionResponse is a session progress snapshot.
type SessionResponse struct {
	SessionID      string    `json:"session_id"`
	SourceName     string    `json:"source_name,omitempty"`
	Status         string    `json:"status"`
	QuestionsAsked int       `json:"questions_asked"`
	TotalQuestions int       `json:"total_questions"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionListResponse wraps GET /v1/interviews.
type SessionListResponse struct {
	Items []SessionResponse `json:"items"`
	Total int               `json:"total"`
}

// CreateInterview handles POST /v1/interviews. The job description arrives
// either as a multipart form with a "file" field or as the raw request body.
func (s *Server) CreateInterview(w http.ResponseWriter, r *http.Request) {
	filename, mimeType, data, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid upload: "+err.Error())
		return
	}

	result, err := s.ingest.Upload(r.Context(), filename, mimeType, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/v1/interviews/"+result.SessionID)
	writeJSON(w, http.StatusCreated, UploadResponse{
		SessionID:   result.SessionID,
		ChunkCount:  result.ChunkCount,
		TextPreview: result.TextPreview,
	})
}

// StartInterview handles POST /v1/interviews/{sessionID}/start.
func (s *Server) StartInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	q, err := s.interviews.Start(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, QuestionResponse{
		Question:       q.Text,
		QuestionNumber: q.Number,
		TotalQuestions: q.Total,
	})
}

// SubmitAnswer handles POST /v1/interviews/{sessionID}/answers.
func (s *Server) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.interviews.SubmitAnswer(r.Context(), id, req.Answer)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnswerResponse{
		Complete:       result.Complete,
		Question:       result.Question,
		QuestionNumber: result.Number,
		TotalQuestions: result.Total,
		Message:        result.Message,
	})
}

// GetInterview handles GET /v1/interviews/{sessionID}.
func (s *Server) GetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	view, err := s.interviews.Status(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionToResponse(view))
}

// EndInterview handles DELETE /v1/interviews/{sessionID}. Idempotent.
func (s *Server) EndInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	if err := s.interviews.End(id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListInterviews handles GET /v1/interviews.
func (s *Server) ListInterviews(w http.ResponseWriter, r *http.Request) {
	views := s.interviews.List()

	items := make([]SessionResponse, len(views))
	for i, v := range views {
		items[i] = sessionToResponse(v)
	}

	writeJSON(w, http.StatusOK, SessionListResponse{
		Items: items,
		Total: len(items),
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func sessionToResponse(v session.View) SessionResponse {
	return SessionResponse{
		SessionID:      v.ID,
		SourceName:     v.SourceName,
		Status:         string(v.Status),
		QuestionsAsked: v.QuestionCount,
		TotalQuestions: v.MaxQuestions,
		CreatedAt:      v.CreatedAt.UTC(),
	}
}

// readUpload extracts the document bytes and media type from the request.
func readUpload(r *http.Request) (filename, mimeType string, data []byte, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType == "multipart/form-data" {
		return readMultipartUpload(r)
	}

	data, err = io.ReadAll(r.Body)
	if err != nil {
		return "", "", nil, err
	}
	return "upload", contentType, data, nil
}

func readMultipartUpload(r *http.Request) (string, string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, err
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", nil, err
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyInput,
		domain.ErrEmptyAnswer,
		domain.ErrUnsupportedFormat,
		domain.ErrSessionNotFound,
		domain.ErrInvalidState,
		domain.ErrProviderTimeout,
		domain.ErrDuplicateQuestion,
		domain.ErrEmbeddingUnavailable,
		domain.ErrGenerationUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidStateHandler reports which lifecycle state blocked the operation.
func invalidStateHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidState) {
		return false
	}
	var ise *domain.InvalidStateError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":    CodeInvalidState,
			"message": msg,
			"op":      ise.Op,
			"status":  ise.Status,
		})
		return true
	}
	writeError(w, http.StatusConflict, CodeInvalidState, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
