package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

func TestToMessages_ToolResultFollowsToolUse(t *testing.T) {
	contents := []core.Content{
		{Role: "user", Parts: []core.Part{core.TextPart{Text: "call my supervisor"}}},
		{Role: "assistant", Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID: "toolu_1", Name: "supervisor_handoff_tool", Arguments: `{"reason":"angry"}`,
		}}}},
		{Role: "tool", Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
			ID: "toolu_1", Name: "supervisor_handoff_tool", Response: map[string]string{"assistant": "Rude Escalation Agent"},
		}}}},
		{Role: "system", Parts: []core.Part{core.TextPart{Text: "ignored here"}}},
	}

	msgs := toMessages(contents)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestToolInput(t *testing.T) {
	assert.Equal(t, map[string]any{}, toolInput(""))
	assert.Equal(t, map[string]any{"reason": "x"}, toolInput(`{"reason":"x"}`))
	assert.Equal(t, "not json", toolInput("not json"))
}

func TestSystemBlocks(t *testing.T) {
	blocks := systemBlocks(model.Request{
		Instructions: "be helpful",
		Contents:     []core.Content{{Role: "system", Parts: []core.Part{core.TextPart{Text: "extra"}}}},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be helpful", blocks[0].Text)
	assert.Equal(t, "extra", blocks[1].Text)
}

func TestToTools(t *testing.T) {
	tools := toTools([]model.ToolDefinition{model.NewFunctionDefinition("escalate", "Escalate", map[string]any{
		"type":       "object",
		"properties": map[string]any{"reason": map[string]any{"type": "string"}},
		"required":   []string{"reason"},
	})})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "escalate", tools[0].OfTool.Name)
	assert.Equal(t, []string{"reason"}, tools[0].OfTool.InputSchema.Required)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(&anthropic.Client{}, func(o *Options) { o.Model = "claude-test" })
	assert.Equal(t, model.Info{Name: "claude-test", Provider: "anthropic", SupportsTools: true}, m.Info())
	assert.Equal(t, DefaultModel, NewModelFromClient(&anthropic.Client{}).Info().Name)
}
