// Package session owns per-session conversation history.
//
// A session is an ordered, append-only message log keyed by an opaque
// caller-supplied id. Sessions are created lazily on first append, never
// expire on their own, and live only in memory: persistence, if any,
// belongs to the presentation layer.
package session

import (
	"sync"

	"codeloop/internal/logging"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a conversation. Immutable once appended;
// insertion order is conversation order.
type Message struct {
	Role    Role
	Content string
}

type entry struct {
	mu       sync.Mutex
	messages []Message
}

// Store holds all sessions. Each session's log is guarded by its own
// mutex so a user-initiated clear or delete is serialized against
// in-flight appends from that session's loop, while distinct sessions
// never contend.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
	}
}

// get returns the entry for id, creating it when missing.
func (s *Store) get(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		e = &entry{}
		s.sessions[id] = e
		logging.SessionDebug("session created: %s", id)
	}
	return e
}

// Append adds a message to the session's log, creating the session if it
// has not been seen before.
func (s *Store) Append(id string, msg Message) {
	e := s.get(id)
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
}

// History returns a copy of the session's ordered message log. An unknown
// id yields an empty history without creating the session.
func (s *Store) History(id string) []Message {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, len(e.messages))
	copy(out, e.messages)
	return out
}

// Len returns the number of messages in the session.
func (s *Store) Len(id string) int {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.messages)
}

// Clear empties a session's history but keeps the id.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.messages = nil
	e.mu.Unlock()
	logging.Session("session cleared: %s", id)
}

// Delete removes a session entirely.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		logging.Session("session deleted: %s", id)
	}
}
