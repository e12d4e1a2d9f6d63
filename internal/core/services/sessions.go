package services

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/manthysbr/seao/internal/core/domain"
)

// SessionStore tracks the simulated security-code step. No code is ever sent
// anywhere: any well-formed code closes a live session.
type SessionStore struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[domain.SessionID]domain.Session
}

func NewSessionStore(clock clockwork.Clock, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SessionStore{
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[domain.SessionID]domain.Session),
	}
}

// Open starts a verification session for a freshly created job.
func (s *SessionStore) Open(jobID domain.JobID, username string) domain.Session {
	now := s.clock.Now()
	sess := domain.Session{
		ID:        domain.SessionID(uuid.New().String()),
		JobID:     jobID,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.sessions[sess.ID] = sess
	return sess
}

// Verify consumes the session and returns a bearer token. jobID is optional;
// when given it must match the job the session was opened for.
func (s *SessionStore) Verify(id domain.SessionID, code string, jobID domain.JobID) (string, error) {
	if !domain.IsWellFormedCode(code) {
		return "", domain.ErrInvalidCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.clock.Now()) {
		delete(s.sessions, id)
		return "", errors.Wrapf(domain.ErrSessionNotFound, "verify %s", id)
	}
	if jobID != "" && jobID != sess.JobID {
		return "", errors.Wrapf(domain.ErrSessionNotFound, "session %s does not belong to job %s", id, jobID)
	}

	delete(s.sessions, id)
	return uuid.New().String(), nil
}

// Len returns the number of open sessions, expired ones included until pruned.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops expired sessions and returns how many were removed.
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.clock.Now())
}

func (s *SessionStore) pruneLocked(now time.Time) int {
	n := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
