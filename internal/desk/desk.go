// Package desk assembles the support desk: a notification agent that can
// escalate a conversation to a supervisor agent through a handoff.
package desk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/internal/util"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/notify"
	"github.com/hupe1980/agentrelay/tool"
)

const (
	NotificationAgentName = "Helpful Notification Agent"
	EscalationAgentName   = "Rude Escalation Agent"

	SupervisorHandoffTool        = "supervisor_handoff_tool"
	SupervisorHandoffDescription = "Tool for escalating requests to a supervisor"
	EscalationHandoffDescription = "Escalate the request if the user asks you to talk to a supervisor"

	DefaultModel = "gpt-5.2"
)

const notificationInstructions = `
You are a helpful financial services assistant that notifies other departments via push notifications.

Your responsibilities:
- Help users with their questions and requests
- Send push notifications when appropriate
- Record user contact details when they express interest in staying in touch
- Log any questions you cannot answer for follow-up

Guidelines:
- Be concise and friendly in your responses
- Only send notifications for important or requested information
{{with .context}}

Current context: {{.}}{{end}}`

const escalationInstructions = `
You are a rude financial services supervisor that handles escalated requests from a notification agent.
Your responsibilities:
- Help users to record their requests
- Send push notifications when appropriate
Guidelines:
- Be concise and unfriendly in your responses
- Only send notifications for important or requested information
- Do not engage in small talk or pleasantries
- Always reply in Spanish
`

// NotificationInstructions renders the notification agent's system prompt.
// The run context, when set, is appended on every resolution.
func NotificationInstructions(rc *core.RunContext, a core.AgentDescriptor) (string, error) {
	rc.LogDebug("desk.instructions", "agent", a.Name(), "context", rc.DataString())
	return util.RenderTemplate(notificationInstructions, map[string]any{
		"agent":   a.Name(),
		"context": rc.DataString(),
	})
}

// EscalationPayload is what the model supplies when it escalates.
type EscalationPayload struct {
	Reason string `json:"reason" jsonschema:"required,minLength=1,description=Why the conversation is escalated to a supervisor"`
}

// Validate rejects blank reasons.
func (p *EscalationPayload) Validate() error {
	if strings.TrimSpace(p.Reason) == "" {
		return errors.New("reason must not be blank")
	}
	return nil
}

// OnEscalation returns the escalation callback. It logs the reason and hands
// a notification to n without waiting on its outcome; delivery failures are
// logged and never abort the handoff.
func OnEscalation(n notify.Notifier, logger logging.Logger) func(rc *core.RunContext, p EscalationPayload) error {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(rc *core.RunContext, p EscalationPayload) error {
		logger.Debug("desk.escalation.context", "run_id", rc.RunID, "context", rc.DataString())
		msg := "Escalation agent called with reason: " + p.Reason
		logger.Info("desk.escalation", "run_id", rc.RunID, "session_id", rc.SessionID, "reason", p.Reason)

		if n == nil {
			return nil
		}
		if err := n.Notify(rc.Context, notify.Notification{Title: "Escalation", Message: msg}); err != nil {
			logger.Warn("desk.escalation.notify_failed", "run_id", rc.RunID, "error", err)
		}
		return nil
	}
}

// HandoffInputFilter hands the supervisor the full conversation.
func HandoffInputFilter(d handoff.InputData) handoff.InputData {
	if d.RunContext != nil {
		d.RunContext.LogDebug("desk.handoff.filter",
			"history", len(d.InputHistory), "pre_handoff", len(d.PreHandoffItems), "new", len(d.NewItems))
	}
	return handoff.PassThrough(d)
}

// Deps are the collaborators Build wires into the agents.
type Deps struct {
	// Model is the notification agent's model; DefaultModel when empty.
	Model string
	// EscalationModel defaults to Model.
	EscalationModel string
	Notifier        notify.Notifier
	Policy          *guardrail.Policy
	Logger          logging.Logger
}

// Agents holds the two desk agents.
type Agents struct {
	Notification *agent.Agent
	Escalation   *agent.Agent
}

// Build creates the escalation agent and the notification agent that hands
// off to it. The notification agent is where runs start.
func Build(d Deps) (*Agents, error) {
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.EscalationModel == "" {
		d.EscalationModel = d.Model
	}
	if d.Logger == nil {
		d.Logger = logging.NoOpLogger{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.LogNotifier{Logger: d.Logger}
	}
	policy := guardrail.DefaultPolicy()
	if d.Policy != nil {
		policy = *d.Policy
	}

	agentHooks := hook.Logging(d.Logger, "agent")
	contact := tool.NewSendContactRequestTool(d.Notifier)

	escalation, err := agent.New(EscalationAgentName, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText(escalationInstructions)
		o.Model = d.EscalationModel
		o.Tools = []tool.Tool{contact}
		o.HandoffDescription = EscalationHandoffDescription
		o.Hooks = agentHooks
	})
	if err != nil {
		return nil, fmt.Errorf("build escalation agent: %w", err)
	}

	supervisor := handoff.New(escalation, func(o *handoff.Options[EscalationPayload]) {
		o.OnHandoff = OnEscalation(d.Notifier, d.Logger)
		o.ToolNameOverride = SupervisorHandoffTool
		o.ToolDescriptionOverride = SupervisorHandoffDescription
		o.InputFilter = HandoffInputFilter
	})

	notification, err := agent.New(NotificationAgentName, func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromFunc(NotificationInstructions)
		o.Model = d.Model
		o.Tools = []tool.Tool{contact}
		o.InputGuardrails = []guardrail.Input{policy.FoulLanguage()}
		o.OutputGuardrails = []guardrail.Output{policy.Unprofessional()}
		o.Hooks = agentHooks
		o.Handoffs = []handoff.Handoff{supervisor}
	})
	if err != nil {
		return nil, fmt.Errorf("build notification agent: %w", err)
	}

	return &Agents{Notification: notification, Escalation: escalation}, nil
}
