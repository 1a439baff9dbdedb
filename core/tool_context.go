package core

import (
	"context"
)

// ToolContext provides a constrained surface for tool implementations invoked
// by an agent: identifiers, the caller data and a logger tagged with the
// calling agent.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string

	*scopedLogger
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		scopedLogger:   newScopedLogger(runCtx.Logger(), "agent", runCtx.Agent.Name),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// RunContext returns the parent run context.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the agent that issued the call.
func (tc *ToolContext) AgentName() string { return tc.runCtx.Agent.Name }

// Data returns the caller supplied run data.
func (tc *ToolContext) Data() any { return tc.runCtx.Data() }
