package config

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-5.2", cfg.Model)
	assert.Equal(t, "gpt-5.2", cfg.EscalationModelOrDefault())
	assert.Equal(t, "memory.db", cfg.SessionDB)
	assert.Equal(t, "shared", cfg.SessionID)
	assert.Equal(t, 20, cfg.MaxTurns)
	assert.Equal(t, "Openai Agent SDK Tutorial", cfg.WorkflowName)
	assert.Equal(t, "Hola Precioso", cfg.RunContext)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.PushoverEnabled())
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"MODEL_PROVIDER":   "Anthropic",
		"AGENT_MODEL":      "claude-sonnet-4-5",
		"ESCALATION_MODEL": "claude-haiku-4-5",
		"MAX_TURNS":        "5",
		"PUSHOVER_TOKEN":   "tok",
		"PUSHOVER_USER":    "usr",
		"LOG_FORMAT":       "json",
	}))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "claude-haiku-4-5", cfg.EscalationModelOrDefault())
	assert.Equal(t, 5, cfg.MaxTurns)
	assert.True(t, cfg.PushoverEnabled())
}

func TestLoadWith_Invalid(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"MODEL_PROVIDER": "gemini",
		"MAX_TURNS":      "0",
		"PUSHOVER_TOKEN": "only-token",
		"LOG_LEVEL":      "loud",
	}))
	require.Error(t, err)
	for _, want := range []string{"MODEL_PROVIDER", "MAX_TURNS", "PUSHOVER_USER", "LOG_LEVEL"} {
		assert.Contains(t, err.Error(), want)
	}

	_, err = LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"MAX_TURNS": "many"}))
	assert.Error(t, err)
}
