// Package prompt builds generation requests from retrieved context and
// conversation history. Assembly is deterministic: identical inputs produce
// byte-identical prompts, so all non-determinism stays in the provider.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hireloop/interviewd/internal/domain"
)

// DefaultHistoryWindow bounds how many recent turns are included verbatim.
const DefaultHistoryWindow = 10

const noContextPlaceholder = "No specific job description context available."

// Assembler concatenates context chunks, a bounded history window and the
// interviewing rules into a single prompt string.
type Assembler struct {
	historyWindow int
}

// Input is everything one prompt depends on. Context must already be
// deduplicated against chunks shown earlier in the session.
type Input struct {
	Context      []domain.Chunk
	History      []domain.Turn
	TurnNumber   int
	MaxQuestions int
	// Reinforce strengthens the do-not-repeat instruction after the
	// provider returned an already-asked question.
	Reinforce bool
}

// New creates an assembler. Non-positive window falls back to the default.
func New(historyWindow int) *Assembler {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Assembler{historyWindow: historyWindow}
}

// Assemble renders the prompt. When TurnNumber equals MaxQuestions the
// instructions ask for closing remarks instead of a new question.
func (a *Assembler) Assemble(in Input) string {
	var b strings.Builder

	b.WriteString("You are an AI interviewer conducting a professional job interview based on the provided job description.\n\n")

	b.WriteString("Job description context:\n")
	if len(in.Context) == 0 {
		b.WriteString(noContextPlaceholder)
		b.WriteString("\n")
	} else {
		for i, c := range in.Context {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(c.Text)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("Conversation so far:\n")
	if len(in.History) == 0 {
		b.WriteString("No conversation yet.\n")
	} else {
		for _, t := range lastTurns(in.History, a.historyWindow) {
			b.WriteString(roleLabel(t.Role))
			b.WriteString(": ")
			b.WriteString(t.Text)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if in.TurnNumber >= in.MaxQuestions {
		fmt.Fprintf(&b, "All %d questions have been asked. Do not ask a new question. ", in.MaxQuestions)
		b.WriteString("Thank the candidate and give brief professional closing remarks for the interview.\n")
		return b.String()
	}

	b.WriteString("Rules:\n")
	b.WriteString("- Ask exactly one clear, role-relevant interview question.\n")
	b.WriteString("- Base the question only on the job description context above.\n")
	b.WriteString("- Do not repeat a question that was already asked in the conversation.\n")
	b.WriteString("- Do not include the answer, an explanation, or any hints.\n")
	b.WriteString("- No math problems, puzzles, riddles, or generic trivia.\n")
	if in.Reinforce {
		b.WriteString("- IMPORTANT: your previous attempt repeated an earlier question. The next question MUST be different from every question in the conversation above.\n")
	}
	fmt.Fprintf(&b, "\nThis will be question %d of %d. ", in.TurnNumber+1, in.MaxQuestions)
	b.WriteString("Output only the interview question.\n")

	return b.String()
}

func lastTurns(history []domain.Turn, n int) []domain.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func roleLabel(r domain.Role) string {
	if r == domain.RoleAnswer {
		return "Candidate"
	}
	return "Interviewer"
}
