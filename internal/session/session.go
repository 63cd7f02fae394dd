// Package session keeps per-user conversation sessions in memory with lazy
// expiry. Sessions are deliberately not persisted: they gate whether a user
// is in an active consultation and carry short-term message history for
// prompt context.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxMessages bounds the per-session history; the oldest entries are
// evicted first.
const MaxMessages = 50

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a session's history.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Session is one user's active consultation.
type Session struct {
	ID           string
	UserID       string
	UserName     string
	StartTime    time.Time
	LastActivity time.Time
	Messages     []Message
	Active       bool
}

// Stats summarizes the store for the observability endpoints.
type Stats struct {
	TotalSessions  int     `json:"total_sessions"`
	ActiveSessions int     `json:"active_sessions"`
	AvgMessages    float64 `json:"avg_messages"`
}

// Store manages sessions behind a single store-wide mutex. Session objects
// are small and contention is low next to the network latency of a remote
// call, so coarse locking is fine.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire after timeout of
// inactivity.
func NewStore(timeout time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

// Create starts a new session for the user, ending any prior one.
func (s *Store) Create(userID, userName string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; ok {
		s.endLocked(userID)
	}

	now := s.now()
	sess := &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		UserName:     userName,
		StartTime:    now,
		LastActivity: now,
		Active:       true,
	}
	s.sessions[userID] = sess
	return copySession(sess)
}

// HasActive reports whether the user has a live session. A session whose
// inactivity exceeded the timeout is expired and deleted on this read.
func (s *Store) HasActive(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	if s.now().Sub(sess.LastActivity) > s.timeout {
		s.endLocked(userID)
		return false
	}
	return sess.Active
}

// Get returns a copy of the user's session if it is still active.
func (s *Store) Get(userID string) (*Session, bool) {
	if !s.HasActive(userID) {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return copySession(sess), true
}

// AddMessage appends a turn to the session history, evicting from the front
// past MaxMessages. Returns false when the user has no session.
func (s *Store) AddMessage(userID, role, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	sess.Messages = append(sess.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	})
	if len(sess.Messages) > MaxMessages {
		sess.Messages = sess.Messages[len(sess.Messages)-MaxMessages:]
	}
	return true
}

// History returns up to limit of the most recent messages, oldest first.
// A limit <= 0 returns the full (bounded) history.
func (s *Store) History(userID string, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	msgs := sess.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...)
}

// Touch refreshes the activity timestamp.
func (s *Store) Touch(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	sess.LastActivity = s.now()
	return true
}

// End closes and removes the user's session.
func (s *Store) End(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endLocked(userID)
}

func (s *Store) endLocked(userID string) bool {
	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	sess.Active = false
	delete(s.sessions, userID)
	return true
}

// CleanupExpired sweeps out sessions past the inactivity timeout and
// returns how many were removed. Expiry is otherwise lazy; this exists for
// a periodic scheduler.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []string
	for userID, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > s.timeout {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		s.endLocked(userID)
	}
	return len(expired)
}

// ActiveCount returns the number of live sessions.
func (s *Store) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stats returns aggregate counters for the status endpoints.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{TotalSessions: len(s.sessions)}
	var msgs int
	for _, sess := range s.sessions {
		if sess.Active {
			st.ActiveSessions++
		}
		msgs += len(sess.Messages)
	}
	if st.TotalSessions > 0 {
		st.AvgMessages = float64(msgs) / float64(st.TotalSessions)
	}
	return st
}

func copySession(sess *Session) *Session {
	cp := *sess
	cp.Messages = append([]Message(nil), sess.Messages...)
	return &cp
}
