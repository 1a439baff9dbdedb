package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/tool"
)

const tracerName = "github.com/hupe1980/agentrelay/runner"

// DefaultMaxTurns bounds the model calls of one run across all agents.
const DefaultMaxTurns = 20

// MaxTurnsExceededError is returned when a run uses up its turn budget
// without a final answer.
type MaxTurnsExceededError struct {
	MaxTurns int
	Agent    string
	err      error
}

func (e *MaxTurnsExceededError) Error() string {
	return fmt.Sprintf("max turns (%d) exceeded in agent %q", e.MaxTurns, e.Agent)
}

func (e *MaxTurnsExceededError) Unwrap() error { return e.err }

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Models resolves agent model identifiers. Required.
	Models model.Provider
	// SessionStore persists conversation history between runs.
	SessionStore core.SessionStore
	// Hooks observe every agent of every run, in addition to agent hooks.
	Hooks hook.Hooks
	// MaxTurns limits model calls per run; 0 means unlimited.
	MaxTurns int
	// WorkflowName labels runs in traces and logs.
	WorkflowName string
	// Tracer creates run, turn, tool and handoff spans.
	Tracer trace.Tracer
	// Logging services.
	Logger logging.Logger
}

// RunOptions are per-run settings.
type RunOptions struct {
	// SessionID selects the conversation; the same id resumes it.
	SessionID string
	// Context is opaque caller data exposed as RunContext.Data.
	Context any
	// TraceID groups runs in traces; generated when empty.
	TraceID string
	// MaxTurns overrides Options.MaxTurns when > 0.
	MaxTurns int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID       string
	FinalOutput string
	// LastAgent is the agent that produced FinalOutput.
	LastAgent *agent.Agent
	// NewItems are the unfiltered items produced by the run, excluding the
	// user input. They are what was persisted to the session.
	NewItems []core.Event
	Turns    int
	Usage    model.TokenUsage
}

// Runner drives agents through the tool-calling loop: it loads history,
// applies guardrails, calls models and tools, executes handoffs and persists
// the run. Public methods are safe for concurrent use.
type Runner struct {
	models       model.Provider
	sessionStore core.SessionStore
	hooks        hook.Hooks
	maxTurns     int
	workflowName string
	tracer       trace.Tracer
	logger       logging.Logger
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Hooks:        hook.Funcs{},
		MaxTurns:     DefaultMaxTurns,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}
	if opts.Hooks == nil {
		opts.Hooks = hook.Funcs{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Runner{
		models:       opts.Models,
		sessionStore: opts.SessionStore,
		hooks:        opts.Hooks,
		maxTurns:     opts.MaxTurns,
		workflowName: opts.WorkflowName,
		tracer:       opts.Tracer,
		logger:       opts.Logger,
	}
}

// SessionStore returns the store used for history.
func (r *Runner) SessionStore() core.SessionStore { return r.sessionStore }

// run is the mutable state of one Run call.
type run struct {
	rc      *core.RunContext
	current *agent.Agent
	// inputHistory + pre is the transcript the current agent sees.
	inputHistory []core.Event
	pre          []core.Event
	// newItems are durable and never filtered.
	newItems []core.Event
	usage    model.TokenUsage
}

func (s *run) transcript() []core.Event {
	out := make([]core.Event, 0, len(s.inputHistory)+len(s.pre))
	out = append(out, s.inputHistory...)
	return append(out, s.pre...)
}

// Run executes starting with input until an agent produces a final answer.
//
// Errors: *guardrail.InputTripwireError (no model call was made),
// *guardrail.OutputTripwireError, *MaxTurnsExceededError,
// *handoff.SchemaValidationError and *handoff.CallbackError. Nothing is
// persisted when Run fails.
func (r *Runner) Run(ctx context.Context, starting *agent.Agent, input string, optFns ...func(o *RunOptions)) (res *Result, err error) {
	if starting == nil {
		return nil, errors.New("runner: starting agent is nil")
	}
	if r.models == nil {
		return nil, errors.New("runner: no model provider configured")
	}

	var ro RunOptions
	for _, fn := range optFns {
		fn(&ro)
	}
	if ro.MaxTurns <= 0 {
		ro.MaxTurns = r.maxTurns
	}
	if ro.SessionID == "" {
		ro.SessionID = core.NewID()
	}
	if ro.TraceID == "" {
		ro.TraceID = NewTraceID()
	}

	runID := core.NewID()
	ctx, span := r.tracer.Start(ctx, "agentrelay.run", trace.WithAttributes(
		attribute.String("workflow.name", r.workflowName),
		attribute.String("trace.group_id", ro.TraceID),
		attribute.String("session.id", ro.SessionID),
		attribute.String("run.id", runID),
		attribute.String("agent.name", starting.Name()),
	))
	defer func() {
		endSpan(span, err)
	}()

	start := time.Now()
	r.logger.Info("runner.run.start", "run_id", runID, "session_id", ro.SessionID, "agent", starting.Name(), "workflow", r.workflowName)

	sess, err := r.sessionStore.Get(ctx, ro.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", ro.SessionID, err)
	}

	rc := core.NewRunContext(ctx, ro.SessionID, runID, ro.Context, ro.MaxTurns, r.logger)
	rc.WorkflowName = r.workflowName
	rc.TraceID = ro.TraceID
	rc = rc.WithAgent(starting)

	if err := guardrail.RunInput(rc, starting, input, starting.InputGuardrails()); err != nil {
		r.logger.Warn("runner.input_guardrail.tripped", "run_id", runID, "agent", starting.Name(), "error", err.Error())
		return nil, err
	}

	userEvent := core.NewUserMessageEvent(runID, input)
	st := &run{
		rc:           rc,
		current:      starting,
		inputHistory: append(sess.GetConversationHistory(), userEvent),
	}

	output, err := r.loop(st)
	if err != nil {
		r.logger.Error("runner.run.error", "run_id", runID, "agent", st.current.Name(), "error", err.Error())
		return nil, err
	}

	persisted := append([]core.Event{userEvent}, st.newItems...)
	if err := r.sessionStore.AppendEvents(ctx, ro.SessionID, persisted...); err != nil {
		return nil, fmt.Errorf("persist session %s: %w", ro.SessionID, err)
	}

	span.SetAttributes(
		attribute.String("agent.last", st.current.Name()),
		attribute.Int("run.turns", rc.Limiter.Count()),
		attribute.Int("tokens.total", st.usage.TotalTokens),
	)
	r.logger.Info("runner.run.complete", "run_id", runID, "agent", st.current.Name(),
		"turns", rc.Limiter.Count(), "items", len(st.newItems), "duration_ms", time.Since(start).Milliseconds())

	return &Result{
		RunID:       runID,
		FinalOutput: output,
		LastAgent:   st.current,
		NewItems:    st.newItems,
		Turns:       rc.Limiter.Count(),
		Usage:       st.usage,
	}, nil
}

func (r *Runner) hooksFor(a *agent.Agent) hook.Hooks {
	return hook.Combine(r.hooks, a.Hooks())
}

func (r *Runner) loop(st *run) (string, error) {
	started := false
	for {
		if err := st.rc.Err(); err != nil {
			return "", err
		}

		current := st.current
		hooks := r.hooksFor(current)
		if !started {
			hooks.OnAgentStart(st.rc, current)
			started = true
		}

		if err := st.rc.Limiter.Increment(); err != nil {
			maxErr := &MaxTurnsExceededError{Agent: current.Name(), err: err}
			var tle *core.TurnLimitError
			if errors.As(err, &tle) {
				maxErr.MaxTurns = tle.Max
			}
			return "", maxErr
		}

		msg, err := r.turn(st, hooks)
		if err != nil {
			return "", err
		}

		calls := msg.GetFunctionCalls()
		if len(calls) == 0 {
			output := msg.Text()
			st.newItems = append(st.newItems, msg)
			st.pre = append(st.pre, msg)
			if err := guardrail.RunOutput(st.rc, current, output, current.OutputGuardrails()); err != nil {
				return "", err
			}
			hooks.OnAgentEnd(st.rc, current, output)
			return output, nil
		}

		transfer, err := r.dispatch(st, hooks, msg, calls)
		if err != nil {
			return "", err
		}
		if transfer != nil {
			started = false
		}
	}
}

// turn makes one model call for the current agent.
func (r *Runner) turn(st *run, hooks hook.Hooks) (core.Event, error) {
	current := st.current
	ctx, span := r.tracer.Start(st.rc.Context, "agentrelay.turn", trace.WithAttributes(
		attribute.String("agent.name", current.Name()),
		attribute.String("agent.model", current.Model()),
		attribute.Int("turn", st.rc.Limiter.Count()),
	))
	var err error
	defer func() { endSpan(span, err) }()

	rc := st.rc.WithContext(ctx)
	instructions, err := current.ResolveInstructions(rc)
	if err != nil {
		return core.Event{}, err
	}

	m, err := r.models.Resolve(current.Model())
	if err != nil {
		err = fmt.Errorf("resolve model %q for agent %q: %w", current.Model(), current.Name(), err)
		return core.Event{}, err
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     core.Contents(st.transcript()),
		Tools:        current.ToolDefinitions(),
	}

	r.logger.Debug("runner.turn.start", "run_id", rc.RunID, "agent", current.Name(), "turn", rc.Limiter.Count(), "contents", len(req.Contents))
	hooks.OnLLMStart(rc, current, req)

	resp, err := model.Collect(ctx, m, req)
	if err != nil {
		err = fmt.Errorf("model call for agent %q: %w", current.Name(), err)
		return core.Event{}, err
	}
	if resp.Usage != nil {
		st.usage.PromptTokens += resp.Usage.PromptTokens
		st.usage.CompletionTokens += resp.Usage.CompletionTokens
		st.usage.TotalTokens += resp.Usage.TotalTokens
	}

	hooks.OnLLMEnd(rc, current, resp)

	content := resp.Content
	content.Role = "assistant"
	return core.NewContentEvent(rc.RunID, current.Name(), content), nil
}

// dispatch runs the tool calls of msg. The first handoff call wins; later
// handoff calls get an error result. Regular tools run in call order and
// their failures are reported back to the model.
func (r *Runner) dispatch(st *run, hooks hook.Hooks, msg core.Event, calls []core.FunctionCall) (*handoff.Transfer, error) {
	current := st.current
	items := []core.Event{msg}

	var chosen handoff.Handoff
	var chosenCall core.FunctionCall
	for _, c := range calls {
		if h, ok := current.Handoff(c.Name); ok {
			chosen, chosenCall = h, c
			break
		}
	}

	for _, c := range calls {
		if _, ok := current.Handoff(c.Name); ok {
			if c.ID != chosenCall.ID {
				items = append(items, core.NewFunctionResponseEvent(st.rc.RunID, current.Name(), c.ID, c.Name, nil,
					errors.New("multiple handoffs requested, ignoring this one")))
			}
			continue
		}
		items = append(items, r.callTool(st.rc, current, hooks, c))
	}

	if chosen == nil {
		st.newItems = append(st.newItems, items...)
		st.pre = append(st.pre, items...)
		return nil, nil
	}

	return r.handoff(st, chosen, chosenCall, items)
}

func (r *Runner) handoff(st *run, h handoff.Handoff, call core.FunctionCall, items []core.Event) (*handoff.Transfer, error) {
	from := st.current
	ctx, span := r.tracer.Start(st.rc.Context, "agentrelay.handoff", trace.WithAttributes(
		attribute.String("handoff.tool", h.ToolName()),
		attribute.String("handoff.from", from.Name()),
		attribute.String("handoff.to", h.Target().Name()),
	))
	var err error
	defer func() { endSpan(span, err) }()

	tr, err := h.Invoke(st.rc.WithContext(ctx), handoff.Trigger{
		Call:            call,
		InputHistory:    st.inputHistory,
		PreHandoffItems: st.pre,
		NewItems:        items,
	})
	if err != nil {
		return nil, err
	}

	target, ok := tr.Target.(*agent.Agent)
	if !ok {
		err = fmt.Errorf("handoff %q: target %q is not an *agent.Agent", h.ToolName(), tr.Target.Name())
		return nil, err
	}

	st.newItems = append(st.newItems, tr.NewItems...)
	st.inputHistory = tr.Input.InputHistory
	st.pre = append(append([]core.Event(nil), tr.Input.PreHandoffItems...), tr.Input.InputItems...)

	hook.Combine(r.hooks, target.Hooks()).OnHandoff(st.rc, from, target)

	st.current = target
	st.rc = st.rc.WithAgent(target)

	r.logger.Info("runner.handoff", "run_id", st.rc.RunID, "from", from.Name(), "to", target.Name(), "tool", h.ToolName())
	return tr, nil
}

func (r *Runner) callTool(rc *core.RunContext, a *agent.Agent, hooks hook.Hooks, call core.FunctionCall) core.Event {
	ctx, span := r.tracer.Start(rc.Context, "agentrelay.tool", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.id", call.ID),
	))
	rc = rc.WithContext(ctx)

	hooks.OnToolStart(rc, a, call)

	var result any
	var err error
	if t, ok := a.Tool(call.Name); !ok {
		err = tool.NewToolError(call.Name, "unknown tool", tool.CodeNotFound)
	} else {
		args := map[string]any{}
		if strings.TrimSpace(call.Arguments) != "" {
			if uerr := json.Unmarshal([]byte(call.Arguments), &args); uerr != nil {
				err = tool.NewToolError(call.Name, "arguments are not a JSON object: "+uerr.Error(), tool.CodeValidation)
			}
		}
		if err == nil {
			result, err = t.Call(core.NewToolContext(rc, call.ID), args)
		}
	}

	hooks.OnToolEnd(rc, a, call, result, err)
	endSpan(span, err)

	return core.NewFunctionResponseEvent(rc.RunID, a.Name(), call.ID, call.Name, result, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NewTraceID returns a trace group id of the form trace_<32 hex>.
func NewTraceID() string {
	return "trace_" + strings.ReplaceAll(core.NewID(), "-", "")
}
