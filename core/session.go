package core

import (
	"sync"
	"time"
)

// Session is the ordered message transcript for one conversation plus
// metadata. It is safe for concurrent access.
//
// Contract:
//   - AddMessage appends and updates the Updated timestamp
//   - GetMessages returns a defensive copy to avoid external mutation
//   - RecentHistory returns the trailing conversational turns used for routing
//   - Clone performs deep copies for safe divergence
//
// LastModel records the model that produced the most recent assistant answer.
// The router uses it as an explicit continuity signal instead of inferring the
// last model from history text; it is a heuristic, not a guarantee.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	LastModel string    `json:"last_model,omitempty"`

	mu sync.RWMutex
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Messages: []Message{}, Created: now, Updated: now}
}

// AddMessage appends a message updating the Updated timestamp.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	s.Updated = time.Now().UTC()
}

// GetMessages returns a defensive copy of the full transcript.
func (s *Session) GetMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

// MessageCount returns the number of messages in the transcript.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// SetLastModel records the model that produced the latest assistant answer.
func (s *Session) SetLastModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastModel = model
	s.Updated = time.Now().UTC()
}

// GetLastModel returns the recorded continuity model, if any.
func (s *Session) GetLastModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastModel
}

// RecentHistory returns up to n trailing user/assistant turns, excluding tool
// plumbing, suitable for the router's context window.
func (s *Session) RecentHistory(n int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversational := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if m.Role == RoleAssistant && m.Content == "" {
			continue // tool-call turns carry no user-facing text
		}
		conversational = append(conversational, m)
	}

	if n > 0 && len(conversational) > n {
		conversational = conversational[len(conversational)-n:]
	}
	return conversational
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:        s.ID,
		Messages:  make([]Message, len(s.Messages)),
		Created:   s.Created,
		Updated:   s.Updated,
		LastModel: s.LastModel,
	}
	copy(clone.Messages, s.Messages)
	return clone
}

// SessionStore persists sessions and their append-only transcripts. The
// orchestration core never edits past messages.
type SessionStore interface {
	// Get returns the session for id, creating it lazily on first use.
	Get(id string) (*Session, error)
	// Append adds a message to the session transcript.
	Append(id string, msg Message) error
	// SetLastModel records the continuity model for the session.
	SetLastModel(id, model string) error
}
