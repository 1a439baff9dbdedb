package core

import (
	"context"

	"github.com/hupe1980/agentrelay/logging"
)

// RunContext carries execution state for a single run of the agent loop.
// It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (SessionID, RunID, WorkflowName, TraceID)
//   - The agent currently in control
//   - The shared TurnLimiter
//   - Opaque caller supplied data (see Data)
//
// A RunContext is handed to instructions, tools, guardrails, hooks and handoff
// callbacks. Its fields must be treated as read-only by those consumers; the
// runner derives per-agent views with WithAgent instead of mutating.
type RunContext struct {
	Context      context.Context
	SessionID    string
	RunID        string
	WorkflowName string
	TraceID      string
	Agent        AgentInfo
	Limiter      *TurnLimiter

	data any

	*scopedLogger
}

// NewRunContext constructs a RunContext. data is the caller-defined context
// object passed through to user callbacks untouched.
func NewRunContext(ctx context.Context, sessionID, runID string, data any, maxTurns int, logger logging.Logger) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RunContext{
		Context:      ctx,
		SessionID:    sessionID,
		RunID:        runID,
		Limiter:      NewTurnLimiter(maxTurns),
		data:         data,
		scopedLogger: newScopedLogger(logger, "session_id", sessionID),
	}
}

// Data returns the caller supplied context object.
func (rc *RunContext) Data() any { return rc.data }

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithAgent returns a shallow copy bound to another agent. The limiter and
// data are shared with the receiver.
func (rc *RunContext) WithAgent(a AgentDescriptor) *RunContext {
	clone := *rc
	clone.Agent = InfoOf(a)
	return &clone
}

// WithContext returns a shallow copy using ctx for cancellation (and span
// propagation).
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	clone := *rc
	clone.Context = ctx
	return &clone
}

// DataString renders Data for prompts; it returns "" when Data is nil or not
// a string or fmt.Stringer.
func (rc *RunContext) DataString() string {
	switch v := rc.data.(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	default:
		return ""
	}
}
