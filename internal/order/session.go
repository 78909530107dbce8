package order

import (
	"sync"
	"time"
)

// Conversation stages of one order flow. Stored per account, in memory
// only: an in-flight conversation is not a committed-state boundary and
// may be lost on restart.
const (
	StageAwaitingLinks        = "awaiting_links"
	StageAwaitingConfirm      = "awaiting_confirmation"
	StageAwaitingFinalConfirm = "awaiting_final_confirmation"
	StageExecuting            = "executing"
)

// Session is the ephemeral conversational state of one account's order
// flow.
type Session struct {
	UserID    string
	Stage     string
	Links     []string
	UpdatedAt time.Time
}

// SessionStore keeps per-account sessions with TTL expiry. Expired
// entries are dropped lazily on access plus by the cron sweep, so a
// confirm button pressed hours later answers SessionExpired instead of
// acting on stale links.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns the live session for a user, if any.
func (s *SessionStore) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, userID)
		return nil, false
	}
	return sess, true
}

// Put stores a session, replacing any previous one for the same user.
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = s.now()
	s.sessions[sess.UserID] = sess
}

// Touch refreshes the session's deadline after a stage change.
func (s *SessionStore) Touch(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		sess.UpdatedAt = s.now()
	}
}

// Delete removes a user's session.
func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Sweep evicts expired sessions and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.UpdatedAt) > s.ttl {
			delete(s.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
