// Package hook defines lifecycle callbacks observed by the runner.
//
// Hooks are attached either to a single agent (agent.Options.Hooks) or to a
// whole run (runner.Options.Hooks). Every method is optional: embed Funcs, or
// set only the Funcs fields you need.
package hook

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// Hooks receives lifecycle notifications from the runner. Calls are
// synchronous and happen on the run goroutine.
type Hooks interface {
	// OnAgentStart fires when an agent takes control (at run start or after a handoff).
	OnAgentStart(rc *core.RunContext, agent core.AgentDescriptor)
	// OnAgentEnd fires when an agent produced the final output of the run.
	OnAgentEnd(rc *core.RunContext, agent core.AgentDescriptor, output string)
	// OnLLMStart fires before each model call.
	OnLLMStart(rc *core.RunContext, agent core.AgentDescriptor, req model.Request)
	// OnLLMEnd fires after each successful model call.
	OnLLMEnd(rc *core.RunContext, agent core.AgentDescriptor, resp model.Response)
	// OnToolStart fires before a function tool executes.
	OnToolStart(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall)
	// OnToolEnd fires after a function tool returns; err is the tool error, if any.
	OnToolEnd(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall, result any, err error)
	// OnHandoff fires after control was transferred from one agent to another.
	OnHandoff(rc *core.RunContext, from, to core.AgentDescriptor)
}

// Funcs implements Hooks with optional function fields. A nil field is a no-op.
type Funcs struct {
	AgentStart func(rc *core.RunContext, agent core.AgentDescriptor)
	AgentEnd   func(rc *core.RunContext, agent core.AgentDescriptor, output string)
	LLMStart   func(rc *core.RunContext, agent core.AgentDescriptor, req model.Request)
	LLMEnd     func(rc *core.RunContext, agent core.AgentDescriptor, resp model.Response)
	ToolStart  func(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall)
	ToolEnd    func(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall, result any, err error)
	Handoff    func(rc *core.RunContext, from, to core.AgentDescriptor)
}

var _ Hooks = Funcs{}

// OnAgentStart implements Hooks.
func (f Funcs) OnAgentStart(rc *core.RunContext, agent core.AgentDescriptor) {
	if f.AgentStart != nil {
		f.AgentStart(rc, agent)
	}
}

// OnAgentEnd implements Hooks.
func (f Funcs) OnAgentEnd(rc *core.RunContext, agent core.AgentDescriptor, output string) {
	if f.AgentEnd != nil {
		f.AgentEnd(rc, agent, output)
	}
}

// OnLLMStart implements Hooks.
func (f Funcs) OnLLMStart(rc *core.RunContext, agent core.AgentDescriptor, req model.Request) {
	if f.LLMStart != nil {
		f.LLMStart(rc, agent, req)
	}
}

// OnLLMEnd implements Hooks.
func (f Funcs) OnLLMEnd(rc *core.RunContext, agent core.AgentDescriptor, resp model.Response) {
	if f.LLMEnd != nil {
		f.LLMEnd(rc, agent, resp)
	}
}

// OnToolStart implements Hooks.
func (f Funcs) OnToolStart(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall) {
	if f.ToolStart != nil {
		f.ToolStart(rc, agent, call)
	}
}

// OnToolEnd implements Hooks.
func (f Funcs) OnToolEnd(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall, result any, err error) {
	if f.ToolEnd != nil {
		f.ToolEnd(rc, agent, call, result, err)
	}
}

// OnHandoff implements Hooks.
func (f Funcs) OnHandoff(rc *core.RunContext, from, to core.AgentDescriptor) {
	if f.Handoff != nil {
		f.Handoff(rc, from, to)
	}
}

// Multi fans out every callback to each non-nil hook in order.
type Multi []Hooks

var _ Hooks = Multi{}

// Combine builds a Multi, dropping nil entries.
func Combine(hooks ...Hooks) Multi {
	out := make(Multi, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// OnAgentStart implements Hooks.
func (m Multi) OnAgentStart(rc *core.RunContext, agent core.AgentDescriptor) {
	for _, h := range m {
		h.OnAgentStart(rc, agent)
	}
}

// OnAgentEnd implements Hooks.
func (m Multi) OnAgentEnd(rc *core.RunContext, agent core.AgentDescriptor, output string) {
	for _, h := range m {
		h.OnAgentEnd(rc, agent, output)
	}
}

// OnLLMStart implements Hooks.
func (m Multi) OnLLMStart(rc *core.RunContext, agent core.AgentDescriptor, req model.Request) {
	for _, h := range m {
		h.OnLLMStart(rc, agent, req)
	}
}

// OnLLMEnd implements Hooks.
func (m Multi) OnLLMEnd(rc *core.RunContext, agent core.AgentDescriptor, resp model.Response) {
	for _, h := range m {
		h.OnLLMEnd(rc, agent, resp)
	}
}

// OnToolStart implements Hooks.
func (m Multi) OnToolStart(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall) {
	for _, h := range m {
		h.OnToolStart(rc, agent, call)
	}
}

// OnToolEnd implements Hooks.
func (m Multi) OnToolEnd(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall, result any, err error) {
	for _, h := range m {
		h.OnToolEnd(rc, agent, call, result, err)
	}
}

// OnHandoff implements Hooks.
func (m Multi) OnHandoff(rc *core.RunContext, from, to core.AgentDescriptor) {
	for _, h := range m {
		h.OnHandoff(rc, from, to)
	}
}
