// Package session implements the concurrency-safe in-memory registry of
// active interview sessions, with idle-timeout eviction.
package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hireloop/interviewd/internal/domain"
	domsession "github.com/hireloop/interviewd/internal/domain/session"
)

// shardCount keeps registry lock contention fine-grained: request handlers
// for unrelated sessions touch different shards.
const shardCount = 16

// DefaultIdleTimeout evicts sessions with no activity for this long.
const DefaultIdleTimeout = 30 * time.Minute

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*domsession.Session
}

// Store is the sharded session registry. Construct once at process start and
// pass by reference to request handlers; never ambient global state.
type Store struct {
	shards      [shardCount]*shard
	idleTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time

	active  prometheus.Gauge
	evicted prometheus.Counter
}

// New creates a session store. Non-positive idleTimeout falls back to the
// default.
func New(idleTimeout time.Duration, logger *zap.Logger) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	s := &Store{
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*domsession.Session)}
	}
	return s
}

// WithMetrics wires the active-session gauge and eviction counter.
func (s *Store) WithMetrics(active prometheus.Gauge, evicted prometheus.Counter) *Store {
	s.active = active
	s.evicted = evicted
	return s
}

// WithClock overrides the time source (tests only).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create registers a new session under a fresh 128-bit random id.
func (s *Store) Create(doc domain.Document, idx domain.VectorIndex, maxQuestions int) *domsession.Session {
	id := uuid.NewString()
	sess := domsession.New(id, doc, idx, maxQuestions, s.now())

	sh := s.shard(id)
	sh.mu.Lock()
	sh.sessions[id] = sess
	sh.mu.Unlock()

	if s.active != nil {
		s.active.Inc()
	}
	return sess
}

// Get looks a session up by id.
func (s *Store) Get(id string) (*domsession.Session, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	sess, ok := sh.sessions[id]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, domain.ErrSessionNotFound)
	}
	return sess, nil
}

// Delete removes a session from the registry. Unknown ids are a no-op.
func (s *Store) Delete(id string) {
	sh := s.shard(id)
	sh.mu.Lock()
	_, ok := sh.sessions[id]
	delete(sh.sessions, id)
	sh.mu.Unlock()

	if ok && s.active != nil {
		s.active.Dec()
	}
}

// List returns all registered sessions.
func (s *Store) List() []*domsession.Session {
	var out []*domsession.Session
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, sess := range sh.sessions {
			out = append(out, sess)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of registered sessions.
func (s *Store) Count() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Run evicts idle sessions on the given interval until ctx is cancelled.
// Meant to be launched as a goroutine from the composition root.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

// evictIdle terminates and removes sessions idle past the timeout. An
// eviction racing an in-flight operation is harmless: the operation's commit
// re-checks session state and discards its result.
func (s *Store) evictIdle() {
	cutoff := s.now().Add(-s.idleTimeout)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			if sess.LastActive().After(cutoff) {
				continue
			}
			sess.Terminate(s.now())
			delete(sh.sessions, id)

			if s.active != nil {
				s.active.Dec()
			}
			if s.evicted != nil {
				s.evicted.Inc()
			}
			s.logger.Info("evicted idle session",
				zap.String("session_id", id),
				zap.Duration("idle_timeout", s.idleTimeout),
			)
		}
		sh.mu.Unlock()
	}
}

func (s *Store) shard(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}
