package interviewd

import (
	"context"
	"fmt"
	"time"

	domsession "github.com/hireloop/interviewd/internal/domain/session"
)

// Upload extracts text from a job description, chunks and embeds it, and
// creates a new interview session holding the built index. mimeType may be
// empty for plain text.
func (c *Client) Upload(ctx context.Context, filename, mimeType string, data []byte) (res UploadResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("upload", start, err) }()

	up, err := c.ingestSvc.Upload(ctx, filename, mimeType, data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	return UploadResult{
		SessionID:   up.SessionID,
		ChunkCount:  up.ChunkCount,
		TextPreview: up.TextPreview,
	}, nil
}

// Start generates the opening question for a session. A second call on the
// same session fails with ErrInvalidState.
func (c *Client) Start(ctx context.Context, sessionID string) (q Question, err error) {
	start := time.Now()
	defer func() { c.obs.observe("start", start, err) }()

	iq, err := c.interviewSvc.Start(ctx, sessionID)
	if err != nil {
		return Question{}, fmt.Errorf("start: %w", err)
	}
	return Question{Text: iq.Text, Number: iq.Number, Total: iq.Total}, nil
}

// Answer records the candidate's answer and returns either the next question
// or the completion message once the question budget is exhausted.
func (c *Client) Answer(ctx context.Context, sessionID, answer string) (res AnswerResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("answer", start, err) }()

	sr, err := c.interviewSvc.SubmitAnswer(ctx, sessionID, answer)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer: %w", err)
	}
	return AnswerResult{
		Complete: sr.Complete,
		Question: sr.Question,
		Number:   sr.Number,
		Total:    sr.Total,
		Message:  sr.Message,
	}, nil
}

// End terminates a session early. Idempotent: ending an already-ended or
// unknown session succeeds.
func (c *Client) End(sessionID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("end", start, err) }()

	if err = c.interviewSvc.End(sessionID); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return nil
}

// Status returns a snapshot of one session.
func (c *Client) Status(sessionID string) (view SessionView, err error) {
	start := time.Now()
	defer func() { c.obs.observe("status", start, err) }()

	v, err := c.interviewSvc.Status(sessionID)
	if err != nil {
		return SessionView{}, fmt.Errorf("status: %w", err)
	}
	return toSessionView(v), nil
}

// Sessions lists all live sessions.
func (c *Client) Sessions() []SessionView {
	start := time.Now()
	defer func() { c.obs.observe("sessions", start, nil) }()

	views := c.interviewSvc.List()
	out := make([]SessionView, len(views))
	for i, v := range views {
		out[i] = toSessionView(v)
	}
	return out
}

func toSessionView(v domsession.View) SessionView {
	return SessionView{
		SessionID:      v.ID,
		SourceName:     v.SourceName,
		Status:         string(v.Status),
		QuestionsAsked: v.QuestionCount,
		TotalQuestions: v.MaxQuestions,
		CreatedAt:      v.CreatedAt,
	}
}
