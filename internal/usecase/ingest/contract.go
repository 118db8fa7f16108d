package ingest

import (
	"github.com/hireloop/interviewd/internal/domain"
	"github.com/hireloop/interviewd/internal/domain/session"
)

// SessionRegistry creates sessions in the store.
type SessionRegistry interface {
	Create(doc domain.Document, idx domain.VectorIndex, maxQuestions int) *session.Session
}
