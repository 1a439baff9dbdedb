package testutil

import (
	"context"

	"github.com/hupe1980/agentrelay/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("shared").Events(ev1, ev2).Build()
type SessionBuilder struct {
	id     string
	events []core.Event
}

// NewSessionBuilder creates a builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id}
}

// Event appends a single event.
func (b *SessionBuilder) Event(ev core.Event) *SessionBuilder {
	b.events = append(b.events, ev)
	return b
}

// Events appends multiple events.
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns a *core.Session holding the events.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	s.AddEvents(b.events...)
	return s
}

// Seed appends the events to store under the builder's id.
func (b *SessionBuilder) Seed(ctx context.Context, store core.SessionStore) error {
	return store.AppendEvents(ctx, b.id, b.events...)
}
