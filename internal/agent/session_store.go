package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore holds live conversation sessions.
type SessionStore interface {
	// GetOrCreate returns the session for (orgID, id), creating an empty one
	// when absent. An empty id generates a new one.
	GetOrCreate(orgID, id string) *Session
	// Get returns an existing session without creating one.
	Get(orgID, id string) (*Session, bool)
	// EvictIdle removes sessions idle longer than maxIdle and returns how many
	// were removed.
	EvictIdle(maxIdle time.Duration) int
	// Len reports how many sessions are held.
	Len() int
}

// MemorySessionStore is a process-local SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]*Session
	now      func() time.Time
}

type sessionKey struct {
	orgID string
	id    string
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[sessionKey]*Session),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) GetOrCreate(orgID, id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	key := sessionKey{orgID: orgID, id: id}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		// A locked session belongs to an in-flight turn, which refreshes
		// LastActivity when it appends to the transcript.
		if sess.mu.TryLock() {
			sess.LastActivity = now
			sess.mu.Unlock()
		}
		return sess
	}
	sess := &Session{
		ID:           id,
		OrgID:        orgID,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[key] = sess
	return sess
}

func (s *MemorySessionStore) Get(orgID, id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey{orgID: orgID, id: id}]
	return sess, ok
}

func (s *MemorySessionStore) EvictIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, sess := range s.sessions {
		// Sessions locked by an in-flight turn are skipped; the turn will
		// refresh LastActivity anyway.
		if !sess.mu.TryLock() {
			continue
		}
		idle := sess.LastActivity.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
