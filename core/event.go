package core

import (
	"time"

	"github.com/google/uuid"
)

// EventActions encodes orchestration signals attached to an Event.
type EventActions struct {
	TransferToAgent *string `json:"transfer_to_agent,omitempty"`
}

// Event is one item of conversation history: a user message, an assistant
// message, a tool call, a tool result or a handoff marker. After emission it
// should be treated as immutable.
type Event struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Author    string       `json:"author"`
	Actions   EventActions `json:"actions"`
	Timestamp time.Time    `json:"timestamp"`
	Content   *Content     `json:"content,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to a run.
func NewEvent(runID, author string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent creates an assistant message event with a single text part.
func NewMessageEvent(runID, author, message string) Event {
	e := NewEvent(runID, author)
	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(runID, message string) Event {
	e := NewEvent(runID, "user")
	e.Content = &Content{Role: "user", Parts: []Part{TextPart{Text: message}}}
	return e
}

// NewContentEvent wraps arbitrary content produced by author.
func NewContentEvent(runID, author string, content Content) Event {
	e := NewEvent(runID, author)
	e.Content = &content
	return e
}

// NewFunctionResponseEvent records the result (or error) of a tool invocation.
// If err is non-nil its message is copied into the response Error field.
func NewFunctionResponseEvent(runID, author, id, functionName string, result any, err error) Event {
	e := NewEvent(runID, author)
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewID generates a new unique identifier for events and runs.
func NewID() string { return uuid.NewString() }

// Text returns the concatenated text parts of the event content.
func (e Event) Text() string {
	if e.Content == nil {
		return ""
	}
	return e.Content.Text()
}

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether the event completes an assistant turn
// (no pending tool calls or tool results).
func (e Event) IsFinalResponse() bool {
	return len(e.GetFunctionCalls()) == 0 && len(e.GetFunctionResponses()) == 0
}

// Contents extracts the non-nil contents of events in order.
func Contents(events []Event) []Content {
	out := make([]Content, 0, len(events))
	for _, ev := range events {
		if ev.Content != nil {
			out = append(out, *ev.Content)
		}
	}
	return out
}

// Clone returns a copy whose Content (and part slice) is not shared with e.
func (e Event) Clone() Event {
	if e.Content != nil {
		c := Content{Role: e.Content.Role, Parts: make([]Part, len(e.Content.Parts))}
		copy(c.Parts, e.Content.Parts)
		e.Content = &c
	}
	if e.Actions.TransferToAgent != nil {
		name := *e.Actions.TransferToAgent
		e.Actions.TransferToAgent = &name
	}
	return e
}

// CloneEvents deep-copies a slice of events. A nil input yields nil.
func CloneEvents(events []Event) []Event {
	if events == nil {
		return nil
	}
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = ev.Clone()
	}
	return out
}
