package interview

import (
	"strings"

	"github.com/hireloop/interviewd/internal/domain"
)

// normalizeQuestion canonicalizes question text for exact-duplicate
// detection: lowercase, collapsed whitespace, trailing punctuation stripped.
func normalizeQuestion(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, "?.! ")
}

// askedQuestions collects the normalized text of every question turn.
func askedQuestions(history []domain.Turn) map[string]struct{} {
	asked := make(map[string]struct{})
	for _, t := range history {
		if t.Role == domain.RoleQuestion {
			asked[normalizeQuestion(t.Text)] = struct{}{}
		}
	}
	return asked
}
