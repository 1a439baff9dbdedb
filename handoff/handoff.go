package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
)

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var nonToolNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// ValidToolName reports whether name is acceptable as a tool name.
func ValidToolName(name string) bool { return toolNamePattern.MatchString(name) }

// DefaultToolName derives "transfer_to_<agent>" from an agent name.
func DefaultToolName(agentName string) string {
	s := nonToolNameChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(agentName)), "_")
	return "transfer_to_" + strings.Trim(s, "_")
}

// DefaultToolDescription describes a handoff to target for the model.
func DefaultToolDescription(target core.AgentDescriptor) string {
	desc := fmt.Sprintf("Handoff to the %s agent to handle the request.", target.Name())
	if d := target.HandoffDescription(); d != "" {
		desc += " " + d
	}
	return desc
}

// Trigger is a handoff tool call together with the history of the run so far.
type Trigger struct {
	Call core.FunctionCall
	// InputHistory is the conversation before the run plus the run's input.
	InputHistory []core.Event
	// PreHandoffItems are the run's items from earlier turns.
	PreHandoffItems []core.Event
	// NewItems are the current turn's items, ending with the model message
	// holding Call.
	NewItems []core.Event
}

// Transfer is the outcome of a successful handoff.
type Transfer struct {
	Target  core.AgentDescriptor
	Payload any
	// Output is the tool result recorded for the handoff call.
	Output core.Event
	// Input is the filtered bundle; Input.AgentInput() is what Target receives.
	Input InputData
	// NewItems are the unfiltered items of the turn including Output. These
	// are persisted to the session.
	NewItems    []core.Event
	Transitions []State
}

// Handoff is a tool-shaped transfer of control to another agent.
type Handoff interface {
	ToolName() string
	ToolDescription() string
	Parameters() map[string]any
	Target() core.AgentDescriptor
	Validate() error
	Invoke(rc *core.RunContext, trig Trigger) (*Transfer, error)
}

// Validator can be implemented by payload types for checks the schema
// cannot express.
type Validator interface {
	Validate() error
}

// NoInput is the payload type of handoffs whose tool takes no arguments.
type NoInput struct{}

// Options configures a handoff with payload type T.
type Options[T any] struct {
	// OnHandoff runs once per accepted trigger, after the payload has been
	// validated and before control moves.
	OnHandoff func(rc *core.RunContext, payload T) error
	// ToolNameOverride replaces the derived tool name.
	ToolNameOverride string
	// ToolDescriptionOverride replaces the derived tool description.
	ToolDescriptionOverride string
	// InputFilter rewrites what the target sees. Nil passes everything.
	InputFilter InputFilter
}

// Config is a Handoff whose payload decodes into T.
type Config[T any] struct {
	target core.AgentDescriptor
	opts   Options[T]
	schema map[string]any
}

var _ Handoff = (*Config[NoInput])(nil)

// New creates a handoff to target.
func New[T any](target core.AgentDescriptor, optFns ...func(o *Options[T])) *Config[T] {
	var opts Options[T]
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Config[T]{
		target: target,
		opts:   opts,
		schema: util.SchemaFor[T](),
	}
}

// ToolName returns the name of the tool shown to the model.
func (h *Config[T]) ToolName() string {
	if h.opts.ToolNameOverride != "" {
		return h.opts.ToolNameOverride
	}
	if h.target == nil {
		return ""
	}
	return DefaultToolName(h.target.Name())
}

// ToolDescription returns the description of the tool shown to the model.
func (h *Config[T]) ToolDescription() string {
	if h.opts.ToolDescriptionOverride != "" {
		return h.opts.ToolDescriptionOverride
	}
	if h.target == nil {
		return ""
	}
	return DefaultToolDescription(h.target)
}

// Parameters returns the JSON schema of the payload.
func (h *Config[T]) Parameters() map[string]any { return h.schema }

// Target returns the agent that takes over.
func (h *Config[T]) Target() core.AgentDescriptor { return h.target }

// Validate checks the definition. It is called when the owning agent is built.
func (h *Config[T]) Validate() error {
	name := h.ToolName()
	if h.target == nil {
		return &ConfigError{Tool: name, Reason: "target agent is nil"}
	}
	if !ValidToolName(name) {
		return &ConfigError{Tool: name, Reason: "tool name must match ^[a-zA-Z0-9_-]+$"}
	}
	return nil
}

// Invoke runs the coordinator for one trigger. It validates the payload,
// runs OnHandoff, builds and filters the history bundle and returns the
// transfer. Panics from the callback or filter are not recovered.
func (h *Config[T]) Invoke(rc *core.RunContext, trig Trigger) (*Transfer, error) {
	name := h.ToolName()
	target := h.target.Name()
	log := rc.Logger()
	transitions := []State{StateIdle, StateTriggerReceived}

	abort := func(err error) (*Transfer, error) {
		transitions = append(transitions, StateAborted)
		log.Warn("handoff.aborted", "tool", name, "target", target, "run_id", rc.RunID,
			"states", transitions, "error", err.Error())
		return nil, err
	}

	log.Debug("handoff.trigger", "tool", name, "target", target, "fc_id", trig.Call.ID)

	payload, err := h.decode(trig.Call.Arguments)
	if err != nil {
		return abort(&SchemaValidationError{Tool: name, Err: err})
	}
	transitions = append(transitions, StatePayloadValidated)

	if h.opts.OnHandoff != nil {
		if err := h.opts.OnHandoff(rc, payload); err != nil {
			return abort(&CallbackError{Tool: name, Target: target, Err: err})
		}
	}
	transitions = append(transitions, StateCallbackExecuted)

	output := core.NewFunctionResponseEvent(rc.RunID, rc.Agent.Name, trig.Call.ID, trig.Call.Name,
		map[string]any{"assistant": target}, nil)
	output.Actions.TransferToAgent = &target

	newItems := make([]core.Event, 0, len(trig.NewItems)+1)
	newItems = append(newItems, trig.NewItems...)
	newItems = append(newItems, output)

	data := InputData{
		InputHistory:    core.CloneEvents(trig.InputHistory),
		PreHandoffItems: core.CloneEvents(trig.PreHandoffItems),
		NewItems:        core.CloneEvents(newItems),
		InputItems:      core.CloneEvents(newItems),
		RunContext:      rc,
	}
	if h.opts.InputFilter != nil {
		data = h.opts.InputFilter(data)
		data.RunContext = rc
	}
	transitions = append(transitions, StateHistoryFiltered, StateControlTransferred)

	log.Info("handoff.transfer", "tool", name, "from", rc.Agent.Name, "to", target,
		"run_id", rc.RunID, "input_items", len(data.AgentInput()))

	return &Transfer{
		Target:      h.target,
		Payload:     payload,
		Output:      output,
		Input:       data,
		NewItems:    newItems,
		Transitions: transitions,
	}, nil
}

func (h *Config[T]) decode(arguments string) (T, error) {
	var payload T
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(arguments), &raw); err != nil {
		return payload, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if err := util.ValidateParameters(raw, h.schema); err != nil {
		return payload, err
	}
	if err := json.Unmarshal([]byte(arguments), &payload); err != nil {
		return payload, err
	}
	if v, ok := any(&payload).(Validator); ok {
		if err := v.Validate(); err != nil {
			return payload, err
		}
	}
	return payload, nil
}

// IsHandoffError reports whether err came from a handoff coordinator.
func IsHandoffError(err error) bool {
	var sv *SchemaValidationError
	var cb *CallbackError
	return errors.As(err, &sv) || errors.As(err, &cb)
}
