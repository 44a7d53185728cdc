// Package session provides SessionStore implementations: a volatile in-memory
// store for tests and single-process servers, and a Redis-backed store (see
// the redis subpackage) for deployments that need persistence.
package session

import (
	"sync"

	"github.com/meteolab/skycast/core"
)

// InMemoryStore is a volatile SessionStore keeping sessions in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned sessions are clones so callers cannot
// mutate store internals.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Get returns a clone of the session, creating it lazily on first use.
func (s *InMemoryStore) Get(id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(id).Clone(), nil
}

// Append adds a message to the session transcript, creating the session if
// needed.
func (s *InMemoryStore) Append(id string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id).AddMessage(msg)
	return nil
}

// SetLastModel records the continuity model for the session.
func (s *InMemoryStore) SetLastModel(id, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(id).SetLastModel(model)
	return nil
}

// getOrCreateLocked returns the live session; caller must hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(id string) *core.Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = core.NewSession(id)
		s.sessions[id] = sess
	}
	return sess
}
