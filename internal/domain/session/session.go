package session

import (
	"sync"
	"time"

	"github.com/hireloop/interviewd/internal/domain"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusInit marks a session created but not yet started.
	StatusInit Status = "INIT"
	// StatusInProgress marks a session with an open question awaiting an answer.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted marks a session whose question budget is exhausted.
	StatusCompleted Status = "COMPLETED"
	// StatusTerminated marks a session ended by explicit cancellation or eviction.
	StatusTerminated Status = "TERMINATED"
)

// Session is the unit of stateful interaction: one document, one index, one
// bounded conversation. All mutating interview operations must be serialized
// via Acquire/Release; field access is guarded separately so that Terminate
// can take effect while a provider call for this session is still in flight.
type Session struct {
	id           string
	doc          domain.Document
	index        domain.VectorIndex
	maxQuestions int
	createdAt    time.Time

	// op serializes Start/SubmitAnswer. Never held during Terminate.
	op sync.Mutex

	mu            sync.Mutex
	status        Status
	history       []domain.Turn
	questionCount int
	usedChunks    map[int]struct{}
	lastActive    time.Time
}

// View is an immutable snapshot of session progress for status reporting.
type View struct {
	ID            string
	SourceName    string
	Status        Status
	QuestionCount int
	MaxQuestions  int
	CreatedAt     time.Time
}

// New creates a session in StatusInit.
func New(id string, doc domain.Document, index domain.VectorIndex, maxQuestions int, now time.Time) *Session {
	return &Session{
		id:           id,
		doc:          doc,
		index:        index,
		maxQuestions: maxQuestions,
		createdAt:    now,
		status:       StatusInit,
		usedChunks:   make(map[int]struct{}),
		lastActive:   now,
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// Document returns the session's document.
func (s *Session) Document() domain.Document { return s.doc }

// Index returns the session's vector index.
func (s *Session) Index() domain.VectorIndex { return s.index }

// MaxQuestions returns the question budget.
func (s *Session) MaxQuestions() int { return s.maxQuestions }

// Acquire takes the per-session operation lock. Exactly one Start or
// SubmitAnswer runs at a time for a given session.
func (s *Session) Acquire() { s.op.Lock() }

// Release drops the per-session operation lock.
func (s *Session) Release() { s.op.Unlock() }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// QuestionCount returns the number of questions asked so far.
func (s *Session) QuestionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionCount
}

// History returns a copy of the conversation history.
func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// LastActive returns the time of the last session operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch records activity without mutating conversation state.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

// Snapshot returns a progress view for status reporting.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		ID:            s.id,
		SourceName:    s.doc.SourceName(),
		Status:        s.status,
		QuestionCount: s.questionCount,
		MaxQuestions:  s.maxQuestions,
		CreatedAt:     s.createdAt,
	}
}

// UnseenChunks filters retrieval results down to chunks not yet shown in any
// prompt of this session. It does not mark anything as used; marking happens
// in the commit so a failed turn leaves the used set untouched.
func (s *Session) UnseenChunks(results []domain.ScoredChunk) []domain.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Chunk, 0, len(results))
	for _, r := range results {
		if _, seen := s.usedChunks[r.Chunk.Ordinal]; !seen {
			out = append(out, r.Chunk)
		}
	}
	return out
}

// Terminate moves the session to StatusTerminated. It is idempotent and a
// no-op on completed sessions. Returns true if the state changed.
func (s *Session) Terminate(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusTerminated || s.status == StatusCompleted {
		return false
	}
	s.status = StatusTerminated
	s.lastActive = now
	return true
}

// CommitStart applies the first turn: appends the opening question, sets the
// question count to one and transitions to StatusInProgress. The state is
// re-checked here because the session may have been terminated while the
// generation call was in flight; in that case the result is discarded.
func (s *Session) CommitStart(question string, used []int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInit {
		return domain.NewInvalidState("start", string(s.status))
	}
	s.appendTurn(domain.RoleQuestion, question, now)
	s.questionCount = 1
	s.status = StatusInProgress
	s.markUsed(used)
	s.lastActive = now
	return nil
}

// CommitTurn atomically applies one answer/question exchange: the candidate
// answer, then the next question, incrementing the question count.
func (s *Session) CommitTurn(answer, question string, used []int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return domain.NewInvalidState("submit_answer", string(s.status))
	}
	s.appendTurn(domain.RoleAnswer, answer, now)
	s.appendTurn(domain.RoleQuestion, question, now)
	s.questionCount++
	s.markUsed(used)
	s.lastActive = now
	return nil
}

// CommitCompletion applies the final answer and transitions to StatusCompleted.
func (s *Session) CommitCompletion(answer string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return domain.NewInvalidState("submit_answer", string(s.status))
	}
	s.appendTurn(domain.RoleAnswer, answer, now)
	s.status = StatusCompleted
	s.lastActive = now
	return nil
}

func (s *Session) appendTurn(role domain.Role, text string, now time.Time) {
	s.history = append(s.history, domain.Turn{
		Ordinal:   len(s.history),
		Role:      role,
		Text:      text,
		Timestamp: now,
	})
}

func (s *Session) markUsed(ordinals []int) {
	for _, o := range ordinals {
		s.usedChunks[o] = struct{}{}
	}
}
