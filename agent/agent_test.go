package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/tool"
)

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "echo", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) { return args, nil })
}

func TestNew_Defaults(t *testing.T) {
	a, err := New("Helper")
	require.NoError(t, err)

	assert.Equal(t, "Helper", a.Name())
	assert.Empty(t, a.Model())
	assert.NotNil(t, a.Hooks())
	assert.Empty(t, a.ToolDefinitions())

	got, err := a.ResolveInstructions(newTestRunContext())
	require.NoError(t, err)
	assert.Equal(t, "You are Helper, a helpful AI assistant.", got)
}

func TestNew_ToolsAndHandoffs(t *testing.T) {
	supervisor := MustNew("Rude Escalation Agent", func(o *Options) {
		o.HandoffDescription = "Escalate the request if the user asks you to talk to a supervisor"
	})
	h := handoff.New(supervisor, func(o *handoff.Options[handoff.NoInput]) {
		o.ToolNameOverride = "supervisor_handoff_tool"
	})

	a, err := New("Helpful Notification Agent", func(o *Options) {
		o.Model = "gpt-5.2"
		o.Tools = []tool.Tool{echoTool("send_contact_request")}
		o.Handoffs = []handoff.Handoff{h}
	})
	require.NoError(t, err)

	defs := a.ToolDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "send_contact_request", defs[0].Function.Name)
	assert.Equal(t, "supervisor_handoff_tool", defs[1].Function.Name)

	_, ok := a.Tool("send_contact_request")
	assert.True(t, ok)
	got, ok := a.Handoff("supervisor_handoff_tool")
	require.True(t, ok)
	assert.Same(t, supervisor, got.Target())
	_, ok = a.Handoff("send_contact_request")
	assert.False(t, ok)
}

func TestNew_RejectsInvalidDefinitions(t *testing.T) {
	target := MustNew("Target")

	tests := map[string]func(o *Options){
		"bad tool name": func(o *Options) { o.Tools = []tool.Tool{echoTool("123_bad name!")} },
		"duplicate tool": func(o *Options) {
			o.Tools = []tool.Tool{echoTool("dup"), echoTool("dup")}
		},
		"bad handoff name": func(o *Options) {
			o.Handoffs = []handoff.Handoff{handoff.New(target, func(o *handoff.Options[handoff.NoInput]) {
				o.ToolNameOverride = "123_bad name!"
			})}
		},
		"handoff clashes with tool": func(o *Options) {
			o.Tools = []tool.Tool{echoTool("transfer_to_target")}
			o.Handoffs = []handoff.Handoff{handoff.New[handoff.NoInput](target)}
		},
		"foreign target": func(o *Options) {
			o.Handoffs = []handoff.Handoff{handoff.New[handoff.NoInput](descriptor{"elsewhere"})}
		},
		"guardrail without check": func(o *Options) {
			o.InputGuardrails = []guardrail.Input{{Name: "empty"}}
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			a, err := New("Helper", fn)
			assert.Nil(t, a)
			require.Error(t, err)
			assert.True(t, IsConfigError(err), err.Error())
		})
	}

	_, err := New("")
	assert.True(t, IsConfigError(err))
}

func TestResolveInstructions_Dynamic(t *testing.T) {
	calls := 0
	a := MustNew("Helper", func(o *Options) {
		o.Instruction = NewInstructionFromFunc(func(rc *core.RunContext, ag core.AgentDescriptor) (string, error) {
			calls++
			return ag.Name() + " / " + rc.DataString(), nil
		})
	})

	rc := newTestRunContext()
	for range 2 {
		got, err := a.ResolveInstructions(rc)
		require.NoError(t, err)
		assert.Equal(t, "Helper / Hola Precioso", got)
	}
	assert.Equal(t, 2, calls)
}
