package interviewd

import "time"

// UploadResult describes a freshly created interview session.
type UploadResult struct {
	SessionID   string
	ChunkCount  int
	TextPreview string
}

// Question is a generated interview question with its position in the loop.
type Question struct {
	Text   string
	Number int
	Total  int
}

// AnswerResult is the outcome of one answer submission. When Complete is
// true Message carries the closing remarks and Question is empty; otherwise
// Question holds the follow-up.
type AnswerResult struct {
	Complete bool
	Question string
	Number   int
	Total    int
	Message  string
}

// SessionView is a read-only snapshot of a session's progress.
type SessionView struct {
	SessionID      string
	SourceName     string
	Status         string
	QuestionsAsked int
	TotalQuestions int
	CreatedAt      time.Time
}
