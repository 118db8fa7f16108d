// Package interview owns the per-session conversation state machine: it
// orchestrates retrieval, prompt assembly and generation on each turn and
// enforces the question budget and turn-taking rules.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/domain/session"
	"github.com/hireloop/interviewd/internal/prompt"
)

// completionMessage closes the interview once the question budget is spent.
const completionMessage = "Thank you for participating in this interview!"

// Question is the result of Start: the opening question and its position.
type Question struct {
	Text   string
	Number int
	Total  int
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	Complete bool
	Question string
	Number   int
	Total    int
	Message  string
}

// Service drives interview sessions. All mutating operations on one session
// are serialized via the session's operation lock; operations on different
// sessions proceed independently.
type Service struct {
	sessions  SessionStore
	retriever Retriever
	generator Generator
	assembler *prompt.Assembler
	logger    *zap.Logger

	retryAttempts   int
	retryBackoff    time.Duration
	providerTimeout time.Duration
}

// New creates the interview engine.
func New(
	sessions SessionStore,
	retriever Retriever,
	generator Generator,
	assembler *prompt.Assembler,
	logger *zap.Logger,
) *Service {
	return &Service{
		sessions:        sessions,
		retriever:       retriever,
		generator:       generator,
		assembler:       assembler,
		logger:          logger,
		retryAttempts:   3,
		retryBackoff:    200 * time.Millisecond,
		providerTimeout: 30 * time.Second,
	}
}

// WithRetry configures the provider retry policy: attempts is the total
// number of tries per call, backoff the base delay doubled between tries.
func (s *Service) WithRetry(attempts int, backoff time.Duration) *Service {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
	if backoff > 0 {
		s.retryBackoff = backoff
	}
	return s
}

// WithProviderTimeout bounds each individual embedding/generation call.
func (s *Service) WithProviderTimeout(d time.Duration) *Service {
	if d > 0 {
		s.providerTimeout = d
	}
	return s
}

// Start generates the opening question. Requires StatusInit; a second call
// fails with ErrInvalidState. On any provider failure the session is left
// exactly as it was.
func (s *Service) Start(ctx context.Context, sessionID string) (Question, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return Question{}, fmt.Errorf("get session: %w", err)
	}

	sess.Acquire()
	defer sess.Release()

	if st := sess.Status(); st != session.StatusInit {
		return Question{}, domain.NewInvalidState("start", string(st))
	}

	results, err := callWithRetry(ctx, s.retryAttempts, s.retryBackoff, s.providerTimeout,
		func(ctx context.Context) ([]domain.ScoredChunk, error) {
			return s.retriever.AnchorContext(ctx, sess.Index())
		})
	if err != nil {
		return Question{}, fmt.Errorf("retrieve anchor context: %w", err)
	}

	chunks := sess.UnseenChunks(results)
	question, err := s.generateQuestion(ctx, chunks, sess.History(), sess.QuestionCount(), sess.MaxQuestions())
	if err != nil {
		return Question{}, err
	}

	// The session may have been terminated while generation was in flight;
	// the commit re-checks state and discards the result in that case.
	if err := sess.CommitStart(question, ordinals(chunks), time.Now()); err != nil {
		return Question{}, err
	}

	s.logger.Info("interview started",
		zap.String("session_id", sessionID),
		zap.Int("max_questions", sess.MaxQuestions()),
	)

	return Question{Text: question, Number: 1, Total: sess.MaxQuestions()}, nil
}

// SubmitAnswer records the candidate's answer and returns either the next
// question or a completion result once the budget is exhausted. A blank
// answer is rejected before any state changes, and a failed turn leaves
// history and question count untouched (atomic turn semantics).
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, answer string) (SubmitResult, error) {
	if strings.TrimSpace(answer) == "" {
		return SubmitResult{}, fmt.Errorf("submit answer: %w", domain.ErrEmptyAnswer)
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("get session: %w", err)
	}

	sess.Acquire()
	defer sess.Release()

	if st := sess.Status(); st != session.StatusInProgress {
		return SubmitResult{}, domain.NewInvalidState("submit_answer", string(st))
	}

	total := sess.MaxQuestions()
	asked := sess.QuestionCount()

	if asked >= total {
		if err := sess.CommitCompletion(answer, time.Now()); err != nil {
			return SubmitResult{}, err
		}
		s.logger.Info("interview completed",
			zap.String("session_id", sessionID),
			zap.Int("questions", asked),
		)
		return SubmitResult{
			Complete: true,
			Number:   asked,
			Total:    total,
			Message:  completionMessage,
		}, nil
	}

	results, err := callWithRetry(ctx, s.retryAttempts, s.retryBackoff, s.providerTimeout,
		func(ctx context.Context) ([]domain.ScoredChunk, error) {
			return s.retriever.AnswerContext(ctx, sess.Index(), answer)
		})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("retrieve answer context: %w", err)
	}

	chunks := sess.UnseenChunks(results)
	question, err := s.generateQuestion(ctx, chunks, sess.History(), asked, total)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := sess.CommitTurn(answer, question, ordinals(chunks), time.Now()); err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		Question: question,
		Number:   asked + 1,
		Total:    total,
	}, nil
}

// End terminates the session and removes it from the registry. Idempotent:
// ending an already-ended (or unknown) session is a no-op, not an error.
// Safe to call while a provider call for the session is in flight; the
// in-flight result is discarded by the commit's state check.
func (s *Service) End(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("get session: %w", err)
	}

	if sess.Terminate(time.Now()) {
		s.logger.Info("interview terminated", zap.String("session_id", sessionID))
	}
	s.sessions.Delete(sessionID)
	return nil
}

// Status reports session progress.
func (s *Service) Status(sessionID string) (session.View, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return session.View{}, fmt.Errorf("get session: %w", err)
	}
	return sess.Snapshot(), nil
}

// List returns progress views for all active sessions.
func (s *Service) List() []session.View {
	sessions := s.sessions.List()
	views := make([]session.View, len(sessions))
	for i, sess := range sessions {
		views[i] = sess.Snapshot()
	}
	return views
}

// generateQuestion calls the provider and enforces the de-duplication
// policy: a question whose normalized text matches a prior question triggers
// exactly one regeneration with a stronger instruction. A second duplicate
// is a consistency failure, not something to loop on.
func (s *Service) generateQuestion(
	ctx context.Context,
	chunks []domain.Chunk,
	history []domain.Turn,
	turnNumber, maxQuestions int,
) (string, error) {
	asked := askedQuestions(history)
	in := prompt.Input{
		Context:      chunks,
		History:      history,
		TurnNumber:   turnNumber,
		MaxQuestions: maxQuestions,
	}

	question, err := s.generate(ctx, s.assembler.Assemble(in))
	if err != nil {
		return "", err
	}

	if _, dup := asked[normalizeQuestion(question)]; !dup {
		return question, nil
	}

	s.logger.Warn("provider returned a duplicate question, regenerating",
		zap.Int("turn", turnNumber),
	)

	in.Reinforce = true
	question, err = s.generate(ctx, s.assembler.Assemble(in))
	if err != nil {
		return "", err
	}

	if _, dup := asked[normalizeQuestion(question)]; dup {
		return "", fmt.Errorf(
			"provider repeated an already-asked question after regeneration: %w: %w",
			domain.ErrDuplicateQuestion, domain.ErrGenerationUnavailable,
		)
	}
	return question, nil
}

func (s *Service) generate(ctx context.Context, p string) (string, error) {
	res, err := callWithRetry(ctx, s.retryAttempts, s.retryBackoff, s.providerTimeout,
		func(ctx context.Context) (domain.GenerationResult, error) {
			return s.generator.Generate(ctx, p)
		})
	if err != nil {
		return "", fmt.Errorf("generate question: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", fmt.Errorf("provider returned empty text: %w", domain.ErrGenerationUnavailable)
	}
	return text, nil
}

func ordinals(chunks []domain.Chunk) []int {
	out := make([]int, len(chunks))
	for i, c := range chunks {
		out[i] = c.Ordinal
	}
	return out
}
