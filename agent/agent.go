package agent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// ConfigError reports an invalid agent definition.
type ConfigError struct {
	Agent  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %q: %s: %v", e.Agent, e.Reason, e.Err)
	}
	return fmt.Sprintf("agent %q: %s", e.Agent, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Instruction      Instruction
	Model            string
	Tools            []tool.Tool
	InputGuardrails  []guardrail.Input
	OutputGuardrails []guardrail.Output
	Hooks            hook.Hooks
	Handoffs         []handoff.Handoff
	// HandoffDescription is shown to other agents' models when they can hand
	// off to this agent.
	HandoffDescription string
}

// Agent is an immutable, model-backed conversational agent. The runner
// drives it; the agent itself only describes instructions, tools,
// guardrails, hooks and handoffs.
//
// An Agent is safe for concurrent use after construction.
type Agent struct {
	name               string
	model              string
	instruction        Instruction
	handoffDescription string
	tools              []tool.Tool
	toolIndex          map[string]tool.Tool
	handoffs           []handoff.Handoff
	handoffIndex       map[string]handoff.Handoff
	inputGuardrails    []guardrail.Input
	outputGuardrails   []guardrail.Output
	hooks              hook.Hooks
}

var _ core.AgentDescriptor = (*Agent)(nil)

// New creates an agent and validates its definition. Every tool and handoff
// name must match ^[a-zA-Z0-9_-]+$ and be unique, and every handoff must
// target an *Agent. Violations are reported as *ConfigError.
func New(name string, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, &ConfigError{Reason: "name must not be empty"}
	}

	a := &Agent{
		name:               name,
		model:              opts.Model,
		instruction:        opts.Instruction,
		handoffDescription: opts.HandoffDescription,
		toolIndex:          make(map[string]tool.Tool, len(opts.Tools)),
		handoffIndex:       make(map[string]handoff.Handoff, len(opts.Handoffs)),
		inputGuardrails:    append([]guardrail.Input(nil), opts.InputGuardrails...),
		outputGuardrails:   append([]guardrail.Output(nil), opts.OutputGuardrails...),
		hooks:              opts.Hooks,
	}
	if a.hooks == nil {
		a.hooks = hook.Funcs{}
	}

	seen := map[string]bool{}
	claim := func(n string) error {
		if !handoff.ValidToolName(n) {
			return &ConfigError{Agent: name, Reason: fmt.Sprintf("tool name %q must match ^[a-zA-Z0-9_-]+$", n)}
		}
		if seen[n] {
			return &ConfigError{Agent: name, Reason: fmt.Sprintf("duplicate tool name %q", n)}
		}
		seen[n] = true
		return nil
	}

	for _, t := range opts.Tools {
		if t == nil {
			return nil, &ConfigError{Agent: name, Reason: "nil tool"}
		}
		if err := claim(t.Name()); err != nil {
			return nil, err
		}
		a.tools = append(a.tools, t)
		a.toolIndex[t.Name()] = t
	}

	for _, h := range opts.Handoffs {
		if h == nil {
			return nil, &ConfigError{Agent: name, Reason: "nil handoff"}
		}
		if err := h.Validate(); err != nil {
			return nil, &ConfigError{Agent: name, Reason: "invalid handoff", Err: err}
		}
		if _, ok := h.Target().(*Agent); !ok {
			return nil, &ConfigError{Agent: name, Reason: fmt.Sprintf("handoff %q must target an *agent.Agent", h.ToolName())}
		}
		if err := claim(h.ToolName()); err != nil {
			return nil, err
		}
		a.handoffs = append(a.handoffs, h)
		a.handoffIndex[h.ToolName()] = h
	}

	for _, g := range a.inputGuardrails {
		if g.Check == nil {
			return nil, &ConfigError{Agent: name, Reason: fmt.Sprintf("input guardrail %q has no check", g.Name)}
		}
	}
	for _, g := range a.outputGuardrails {
		if g.Check == nil {
			return nil, &ConfigError{Agent: name, Reason: fmt.Sprintf("output guardrail %q has no check", g.Name)}
		}
	}

	return a, nil
}

// MustNew is like New but panics on an invalid definition.
func MustNew(name string, optFns ...func(o *Options)) *Agent {
	a, err := New(name, optFns...)
	if err != nil {
		panic(err)
	}
	return a
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// Model returns the model identifier resolved by the runner's model.Provider.
func (a *Agent) Model() string { return a.model }

// HandoffDescription is appended to handoff tool descriptions targeting this agent.
func (a *Agent) HandoffDescription() string { return a.handoffDescription }

// ResolveInstructions produces the system prompt. Dynamic instructions are
// re-evaluated on every call.
func (a *Agent) ResolveInstructions(rc *core.RunContext) (string, error) {
	return a.instruction.Resolve(rc, a)
}

// Tools returns the registered tools in declaration order.
func (a *Agent) Tools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

// Tool looks up a tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolIndex[name]
	return t, ok
}

// Handoffs returns the configured handoffs in declaration order.
func (a *Agent) Handoffs() []handoff.Handoff { return append([]handoff.Handoff(nil), a.handoffs...) }

// Handoff looks up a handoff by tool name.
func (a *Agent) Handoff(name string) (handoff.Handoff, bool) {
	h, ok := a.handoffIndex[name]
	return h, ok
}

// InputGuardrails returns the input guardrails.
func (a *Agent) InputGuardrails() []guardrail.Input { return a.inputGuardrails }

// OutputGuardrails returns the output guardrails.
func (a *Agent) OutputGuardrails() []guardrail.Output { return a.outputGuardrails }

// Hooks returns the agent level hooks; never nil.
func (a *Agent) Hooks() hook.Hooks { return a.hooks }

// ToolDefinitions lists tools followed by handoffs in the form sent to the model.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(a.tools)+len(a.handoffs))
	for _, t := range a.tools {
		defs = append(defs, model.NewFunctionDefinition(t.Name(), t.Description(), t.Parameters()))
	}
	for _, h := range a.handoffs {
		defs = append(defs, model.NewFunctionDefinition(h.ToolName(), h.ToolDescription(), h.Parameters()))
	}
	return defs
}

// IsConfigError reports whether err is an agent or handoff definition error.
func IsConfigError(err error) bool {
	var ae *ConfigError
	var he *handoff.ConfigError
	return errors.As(err, &ae) || errors.As(err, &he)
}
