package botkit

import (
	"sync"

	"multibot/internal/domain"
)

// Session is one conversation's state: the current flow step plus typed
// scratch data for the flow in progress
type Session struct {
	State domain.ConvState
	Data  domain.ConvData
}

// StateStore keeps sessions for all conversations of one bot runtime,
// keyed by the Telegram user ID. A store is never shared between runtimes,
// so the full conversation key is (bot token, user ID).
type StateStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStateStore creates an empty in-memory state store
func NewStateStore() *StateStore {
	return &StateStore{sessions: make(map[int64]*Session)}
}

// Get returns a copy of the user's session, or an idle session if none exists
func (s *StateStore) Get(userID int64) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return *sess
	}
	return Session{State: domain.StateIdle}
}

// State returns only the current flow step
func (s *StateStore) State(userID int64) domain.ConvState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.State
	}
	return domain.StateIdle
}

// SetState moves the conversation to a flow step, keeping the data bag
func (s *StateStore) SetState(userID int64, state domain.ConvState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}
	sess.State = state
}

// Update mutates the data bag in place. Fields the mutator does not touch
// keep their previous values.
func (s *StateStore) Update(userID int64, fn func(*domain.ConvData)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{}
		s.sessions[userID] = sess
	}
	fn(&sess.Data)
}

// Clear resets the conversation to idle and drops the data bag
func (s *StateStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}
