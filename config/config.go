// Package config loads process settings of the desk from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"

	"github.com/hupe1980/agentrelay/logging"
)

// Config is the desk's environment configuration.
type Config struct {
	Provider        string `env:"MODEL_PROVIDER,default=openai"`
	Model           string `env:"AGENT_MODEL,default=gpt-5.2"`
	EscalationModel string `env:"ESCALATION_MODEL"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	SessionDB string `env:"SESSION_DB,default=memory.db"`
	SessionID string `env:"SESSION_ID,default=shared"`
	MaxTurns  int    `env:"MAX_TURNS,default=20"`

	WorkflowName string `env:"WORKFLOW_NAME,default=Openai Agent SDK Tutorial"`
	RunContext   string `env:"RUN_CONTEXT,default=Hola Precioso"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTLP_INSECURE,default=true"`

	GuardrailPolicy string `env:"GUARDRAIL_POLICY"`

	PushoverToken string `env:"PUSHOVER_TOKEN"`
	PushoverUser  string `env:"PUSHOVER_USER"`

	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
}

// Load reads Config from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads Config from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and combinations envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case "openai", "anthropic", "mock":
	default:
		errs = append(errs, fmt.Errorf("MODEL_PROVIDER %q: must be openai, anthropic or mock", c.Provider))
	}
	if c.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("MAX_TURNS must be positive, got %d", c.MaxTurns))
	}
	if c.SessionID == "" {
		errs = append(errs, errors.New("SESSION_ID must not be empty"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q: must be text or json", c.LogFormat))
	}
	if (c.PushoverToken == "") != (c.PushoverUser == "") {
		errs = append(errs, errors.New("PUSHOVER_TOKEN and PUSHOVER_USER must be set together"))
	}

	return errors.Join(errs...)
}

// EscalationModelOrDefault returns the model of the escalation agent.
func (c *Config) EscalationModelOrDefault() string {
	if c.EscalationModel != "" {
		return c.EscalationModel
	}
	return c.Model
}

// PushoverEnabled reports whether push notifications are configured.
func (c *Config) PushoverEnabled() bool { return c.PushoverToken != "" && c.PushoverUser != "" }
