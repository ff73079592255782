// Package params is the ambient parameter store behind the
// {{$Parameter:Name}} macro shorthand and the parameter channels of plugin
// responses. Values live in two scopes: application-wide and per-session,
// with session values shadowing application ones on read.
package params

import (
	"strings"
	"sync"
)

// Store holds ambient named values. Safe for concurrent use. Names are
// case-insensitive, matching the engine's treatment of plugin identifiers.
type Store struct {
	mu          sync.RWMutex
	application map[string]string
	sessions    map[string]map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		application: make(map[string]string),
		sessions:    make(map[string]map[string]string),
	}
}

// Get reads a named value, consulting the session scope first and falling
// back to the application scope.
func (s *Store) Get(sessionID, name string) (string, bool) {
	key := strings.ToLower(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope, ok := s.sessions[sessionID]; ok {
		if value, ok := scope[key]; ok {
			return value, true
		}
	}
	value, ok := s.application[key]
	return value, ok
}

// SetApplication writes a value into the application scope.
func (s *Store) SetApplication(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.application[strings.ToLower(name)] = value
}

// SetSession writes a value into one session's scope.
func (s *Store) SetSession(sessionID, name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok := s.sessions[sessionID]
	if !ok {
		scope = make(map[string]string)
		s.sessions[sessionID] = scope
	}
	scope[strings.ToLower(name)] = value
}

// Merge folds a plugin response's parameter channels back into the store:
// applicationParameters into the application scope, sessionParameters into
// the given session's scope.
func (s *Store) Merge(sessionID string, application, session map[string]string) {
	if len(application) == 0 && len(session) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range application {
		s.application[strings.ToLower(name)] = value
	}
	if len(session) > 0 {
		scope, ok := s.sessions[sessionID]
		if !ok {
			scope = make(map[string]string)
			s.sessions[sessionID] = scope
		}
		for name, value := range session {
			scope[strings.ToLower(name)] = value
		}
	}
}

// DropSession discards a session's scope, typically when the engine
// dismisses the session.
func (s *Store) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
