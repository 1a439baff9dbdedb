package agent

import (
	"fmt"

	"github.com/hupe1980/agentrelay/core"
)

// Provider produces an agent's system prompt at run time, for example from
// the caller's run context data.
type Provider interface {
	Instruction(rc *core.RunContext, agent core.AgentDescriptor) (string, error)
}

// Func adapts a function to Provider.
type Func func(rc *core.RunContext, agent core.AgentDescriptor) (string, error)

func (f Func) Instruction(rc *core.RunContext, agent core.AgentDescriptor) (string, error) {
	return f(rc, agent)
}

// Instruction is either fixed text or a Provider consulted on every model
// call of the agent.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText returns a fixed instruction.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider returns a dynamic instruction backed by p.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc returns a dynamic instruction backed by f.
func NewInstructionFromFunc(f func(rc *core.RunContext, agent core.AgentDescriptor) (string, error)) Instruction {
	return NewInstructionFromProvider(Func(f))
}

// IsStatic reports whether the instruction is fixed text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the prompt for agent within rc.
func (i Instruction) Resolve(rc *core.RunContext, agent core.AgentDescriptor) (string, error) {
	if i.provider == nil {
		return i.text, nil
	}
	text, err := i.provider.Instruction(rc, agent)
	if err != nil {
		return "", fmt.Errorf("resolve instructions for %q: %w", agent.Name(), err)
	}
	return text, nil
}
