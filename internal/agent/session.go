// Package agent runs the tool-calling loop that turns a user message into
// a grounded answer, one turn at a time per session.
package agent

import (
	"sync"

	"makwenta.app/finance-assistant/internal/core"
)

// Session is the per-user conversation state. Its mutex is held for the
// whole of a turn, so a user's turns execute strictly one at a time and
// the transcript never interleaves.
type Session struct {
	mu       sync.Mutex
	UserID   string
	Messages []core.Message
}

func (s *Session) append(msgs ...core.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// SessionRegistry hands out sessions keyed by user id, creating one on
// first contact.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Get returns the user's session, creating it if this is the first contact.
func (r *SessionRegistry) Get(userID string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[userID]; ok {
		return s
	}
	s = &Session{UserID: userID}
	r.sessions[userID] = s
	return s
}

// Reset clears the user's transcript. The session object survives so a
// concurrently running turn keeps its lock semantics.
func (r *SessionRegistry) Reset(userID string) {
	s := r.Get(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = nil
}
