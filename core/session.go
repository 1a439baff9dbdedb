package core

import (
	"context"
	"sync"
	"time"
)

// Session represents a conversational container tracking an ordered event
// history. It is safe for concurrent access.
//
// Contract:
//   - GetEvents returns a defensive copy to avoid external mutation
//   - GetConversationHistory filters events to user/assistant/tool roles
//   - Clone performs a deep copy of the event slice for safe divergence.
type Session struct {
	ID      string    `json:"id"`
	Events  []Event   `json:"events"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates a new empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, Events: []Event{}, Created: now, Updated: now}
}

// AddEvents appends events to the history updating the Updated timestamp.
func (s *Session) AddEvents(evs ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, evs...)
	s.Updated = time.Now()
}

// GetEvents returns a defensive copy of the full event slice.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// GetConversationHistory returns events suitable for providing conversational
// context to models.
func (s *Session) GetConversationHistory() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := map[string]bool{"user": true, "assistant": true, "tool": true}
	res := make([]Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.Content == nil || !allowed[ev.Content.Role] {
			continue
		}
		res = append(res, ev)
	}
	return res
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{ID: s.ID, Events: make([]Event, len(s.Events)), Created: s.Created, Updated: s.Updated}
	copy(clone.Events, s.Events)
	return clone
}

// SessionStore persists sessions and their event history. Get on an unknown
// id yields an empty session; the same id resumes the prior conversation.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	AppendEvents(ctx context.Context, sessionID string, events ...Event) error
	Clear(ctx context.Context, sessionID string) error
}
