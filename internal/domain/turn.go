package domain

import "time"

// Role distinguishes interviewer questions from candidate answers.
type Role string

const (
	// RoleQuestion marks a turn produced by the interview engine.
	RoleQuestion Role = "question"
	// RoleAnswer marks a turn submitted by the candidate.
	RoleAnswer Role = "answer"
)

// Turn is one entry in a session's append-only conversation history.
// Ordinals are monotonically increasing and never reused.
type Turn struct {
	Ordinal   int
	Role      Role
	Text      string
	Timestamp time.Time
}
