package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/tool"
)

type escalation struct {
	Reason string `json:"reason" jsonschema:"required,minLength=1"`
}

type fixture struct {
	main, sup   *model.MockModel
	store       *session.InMemoryStore
	recorder    *tracetest.SpanRecorder
	runner      *Runner
	notifier    *agent.Agent
	supervisor  *agent.Agent
	escalations []escalation
	callbackErr error
	events      []string
	mu          sync.Mutex
}

func (f *fixture) record(ev string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func newFixture(t *testing.T, optFns ...func(f *fixture, o *agent.Options, h *handoff.Options[escalation])) *fixture {
	t.Helper()
	f := &fixture{
		main:     model.NewMockModel("main", "mock"),
		sup:      model.NewMockModel("sup", "mock"),
		store:    session.NewInMemoryStore(),
		recorder: tracetest.NewSpanRecorder(),
	}

	f.supervisor = agent.MustNew("Rude Escalation Agent", func(o *agent.Options) {
		o.Model = "sup"
		o.Instruction = agent.NewInstructionFromText("You are a rude supervisor. Always reply in Spanish.")
		o.HandoffDescription = "Escalate the request if the user asks you to talk to a supervisor"
	})

	hOpts := func(o *handoff.Options[escalation]) {
		o.ToolNameOverride = "supervisor_handoff_tool"
		o.ToolDescriptionOverride = "Tool for escalating requests to a supervisor"
		o.OnHandoff = func(_ *core.RunContext, p escalation) error {
			f.escalations = append(f.escalations, p)
			return f.callbackErr
		}
	}

	contact := tool.NewFunctionTool("send_contact_request", "Record contact details",
		map[string]any{"type": "object", "properties": map[string]any{"email": map[string]any{"type": "string"}}},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			if args["email"] == "broken" {
				return nil, errors.New("smtp unreachable")
			}
			return map[string]any{"status": "sent"}, nil
		})

	var agentOpts agent.Options
	var extraHandoff func(o *handoff.Options[escalation])
	for _, fn := range optFns {
		var hx handoff.Options[escalation]
		fn(f, &agentOpts, &hx)
		if hx.InputFilter != nil {
			filter := hx.InputFilter
			extraHandoff = func(o *handoff.Options[escalation]) { o.InputFilter = filter }
		}
	}

	f.notifier = agent.MustNew("Helpful Notification Agent", func(o *agent.Options) {
		*o = agentOpts
		o.Model = "main"
		o.Instruction = agent.NewInstructionFromFunc(func(rc *core.RunContext, _ core.AgentDescriptor) (string, error) {
			return "You help with notifications.\n\nCurrent context: " + rc.DataString(), nil
		})
		o.Tools = []tool.Tool{contact}
		fns := []func(o *handoff.Options[escalation]){hOpts}
		if extraHandoff != nil {
			fns = append(fns, extraHandoff)
		}
		o.Handoffs = []handoff.Handoff{handoff.New(f.supervisor, fns...)}
	})

	registry := model.NewRegistry(nil)
	registry.Register("main", f.main)
	registry.Register("sup", f.sup)

	f.runner = New(func(o *Options) {
		o.Models = registry
		o.SessionStore = f.store
		o.WorkflowName = "Openai Agent SDK Tutorial"
		o.Tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.recorder)).Tracer("test")
		o.Hooks = hook.Funcs{
			AgentStart: func(_ *core.RunContext, a core.AgentDescriptor) { f.record("start:" + a.Name()) },
			AgentEnd:   func(_ *core.RunContext, a core.AgentDescriptor, _ string) { f.record("end:" + a.Name()) },
			ToolStart:  func(_ *core.RunContext, _ core.AgentDescriptor, c core.FunctionCall) { f.record("tool:" + c.Name) },
			Handoff: func(_ *core.RunContext, from, to core.AgentDescriptor) {
				f.record("handoff:" + from.Name() + "->" + to.Name())
			},
		}
	})
	return f
}

func (f *fixture) run(input string) (*Result, error) {
	return f.runner.Run(context.Background(), f.notifier, input, func(o *RunOptions) {
		o.SessionID = "shared"
		o.Context = "Hola Precioso"
	})
}

func (f *fixture) persisted(t *testing.T) []core.Event {
	t.Helper()
	sess, err := f.store.Get(context.Background(), "shared")
	require.NoError(t, err)
	return sess.GetEvents()
}

func spanNames(rec *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestRun_TextAnswerAndResume(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueText("Hello! How can I help?")
	f.main.EnqueueText("Still here.")

	res, err := f.run("hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", res.FinalOutput)
	assert.Same(t, f.notifier, res.LastAgent)
	assert.Equal(t, 1, res.Turns)

	req := f.main.Requests()[0]
	assert.Equal(t, "You help with notifications.\n\nCurrent context: Hola Precioso", req.Instructions)
	require.Len(t, req.Tools, 2)
	assert.Equal(t, "supervisor_handoff_tool", req.Tools[1].Function.Name)

	_, err = f.run("are you there?")
	require.NoError(t, err)

	// second run sees the first exchange
	second := f.main.Requests()[1]
	require.Len(t, second.Contents, 3)
	assert.Equal(t, "hi", second.Contents[0].Text())
	assert.Equal(t, "Hello! How can I help?", second.Contents[1].Text())
	assert.Equal(t, "are you there?", second.Contents[2].Text())

	assert.Len(t, f.persisted(t), 4)
	assert.Equal(t, []string{"start:Helpful Notification Agent", "end:Helpful Notification Agent",
		"start:Helpful Notification Agent", "end:Helpful Notification Agent"}, f.events)
}

func TestRun_ToolCallThenAnswer(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueToolCall("c1", "send_contact_request", `{"email":"broken"}`)
	f.main.EnqueueToolCall("c2", "send_contact_request", `{"email":"ana@example.com"}`)
	f.main.EnqueueText("Done, I have sent your request.")

	res, err := f.run("Please contact me")
	require.NoError(t, err)
	assert.Equal(t, "Done, I have sent your request.", res.FinalOutput)
	assert.Equal(t, 3, res.Turns)

	// call, error result, call, result, answer
	require.Len(t, res.NewItems, 5)
	failed := res.NewItems[1].GetFunctionResponses()[0]
	assert.Contains(t, failed.Error, "smtp unreachable")
	ok := res.NewItems[3].GetFunctionResponses()[0]
	assert.Equal(t, map[string]any{"status": "sent"}, ok.Response)

	assert.Len(t, f.main.Requests()[2].Contents, 5)
	assert.Contains(t, spanNames(f.recorder), "agentrelay.tool")
}

func TestRun_EscalatesToSupervisor(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueToolCall("c1", "supervisor_handoff_tool", `{"reason":"user requested supervisor"}`)
	f.sup.EnqueueText("¿Qué quieres ahora?")

	res, err := f.run("I want to talk to your supervisor")
	require.NoError(t, err)

	assert.Equal(t, "¿Qué quieres ahora?", res.FinalOutput)
	assert.Same(t, f.supervisor, res.LastAgent)
	assert.Equal(t, []escalation{{Reason: "user requested supervisor"}}, f.escalations)
	assert.Equal(t, 1, f.main.Calls())
	assert.Equal(t, 1, f.sup.Calls())

	supReq := f.sup.Requests()[0]
	assert.Equal(t, "You are a rude supervisor. Always reply in Spanish.", supReq.Instructions)
	// user input, handoff call, handoff output
	require.Len(t, supReq.Contents, 3)
	assert.Equal(t, "I want to talk to your supervisor", supReq.Contents[0].Text())

	events := f.persisted(t)
	require.Len(t, events, 4)
	require.NotNil(t, events[2].Actions.TransferToAgent)
	assert.Equal(t, "Rude Escalation Agent", *events[2].Actions.TransferToAgent)
	assert.Equal(t, "Rude Escalation Agent", events[3].Author)

	assert.Equal(t, []string{
		"start:Helpful Notification Agent",
		"handoff:Helpful Notification Agent->Rude Escalation Agent",
		"start:Rude Escalation Agent",
		"end:Rude Escalation Agent",
	}, f.events)
	assert.Contains(t, spanNames(f.recorder), "agentrelay.handoff")
	assert.Contains(t, spanNames(f.recorder), "agentrelay.run")
}

func TestRun_InvalidPayloadAborts(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueToolCall("c1", "supervisor_handoff_tool", `{}`)

	_, err := f.run("supervisor!")
	var sv *handoff.SchemaValidationError
	require.ErrorAs(t, err, &sv)
	assert.Empty(t, f.escalations)
	assert.Equal(t, 0, f.sup.Calls())
	assert.Empty(t, f.persisted(t))
}

func TestRun_CallbackErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.callbackErr = errors.New("pager offline")
	f.main.EnqueueToolCall("c1", "supervisor_handoff_tool", `{"reason":"angry customer"}`)

	_, err := f.run("supervisor!")
	var cb *handoff.CallbackError
	require.ErrorAs(t, err, &cb)
	assert.ErrorIs(t, err, f.callbackErr)
	assert.Len(t, f.escalations, 1)
	assert.Equal(t, 0, f.sup.Calls())
	assert.Empty(t, f.persisted(t))
}

func TestRun_OnlyFirstHandoffHonored(t *testing.T) {
	f := newFixture(t)
	f.main.Enqueue(model.Response{Content: core.Content{Role: "assistant", Parts: []core.Part{
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "supervisor_handoff_tool", Arguments: `{"reason":"first"}`}},
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c2", Name: "supervisor_handoff_tool", Arguments: `{"reason":"second"}`}},
	}}})
	f.sup.EnqueueText("Habla.")

	res, err := f.run("supervisor")
	require.NoError(t, err)
	assert.Equal(t, []escalation{{Reason: "first"}}, f.escalations)

	var ignored []core.FunctionResponse
	for _, ev := range res.NewItems {
		for _, fr := range ev.GetFunctionResponses() {
			if fr.Error != "" {
				ignored = append(ignored, fr)
			}
		}
	}
	require.Len(t, ignored, 1)
	assert.Equal(t, "c2", ignored[0].ID)
}

func TestRun_FilterLimitsTargetViewOnly(t *testing.T) {
	f := newFixture(t, func(_ *fixture, _ *agent.Options, h *handoff.Options[escalation]) {
		h.InputFilter = handoff.RemoveToolItems
	})
	f.main.EnqueueToolCall("c1", "send_contact_request", `{"email":"ana@example.com"}`)
	f.main.EnqueueToolCall("c2", "supervisor_handoff_tool", `{"reason":"still unhappy"}`)
	f.sup.EnqueueText("¿Y?")

	res, err := f.run("contact me, then get your boss")
	require.NoError(t, err)

	supReq := f.sup.Requests()[0]
	require.Len(t, supReq.Contents, 1)
	assert.Equal(t, "contact me, then get your boss", supReq.Contents[0].Text())

	// tool call, tool result, handoff call, handoff output, answer
	assert.Len(t, res.NewItems, 5)
	assert.Len(t, f.persisted(t), 6)
}

func TestRun_InputGuardrailBlocksBeforeModel(t *testing.T) {
	f := newFixture(t, func(_ *fixture, o *agent.Options, _ *handoff.Options[escalation]) {
		o.InputGuardrails = []guardrail.Input{guardrail.DefaultPolicy().FoulLanguage()}
	})

	_, err := f.run("this is a damn scam")
	var trip *guardrail.InputTripwireError
	require.ErrorAs(t, err, &trip)
	assert.Equal(t, 0, f.main.Calls())
	assert.Empty(t, f.persisted(t))
}

func TestRun_OutputGuardrail(t *testing.T) {
	f := newFixture(t, func(_ *fixture, o *agent.Options, _ *handoff.Options[escalation]) {
		o.OutputGuardrails = []guardrail.Output{guardrail.DefaultPolicy().Unprofessional()}
	})
	f.main.EnqueueText("Whatever, shut up.")

	_, err := f.run("hello")
	var trip *guardrail.OutputTripwireError
	require.ErrorAs(t, err, &trip)
	assert.Equal(t, "Helpful Notification Agent", trip.Agent)
}

func TestRun_MaxTurns(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.main.EnqueueToolCall("c", "send_contact_request", `{"email":"ana@example.com"}`)
	}

	_, err := f.runner.Run(context.Background(), f.notifier, "loop", func(o *RunOptions) {
		o.SessionID = "shared"
		o.MaxTurns = 2
	})
	var mt *MaxTurnsExceededError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, 2, mt.MaxTurns)
	assert.Equal(t, 2, f.main.Calls())

	var tle *core.TurnLimitError
	assert.ErrorAs(t, err, &tle)
}

func TestRun_ZeroRunMaxTurnsKeepsRunnerDefault(t *testing.T) {
	f := newFixture(t)
	f.runner.maxTurns = 2
	for range 3 {
		f.main.EnqueueToolCall("c", "send_contact_request", `{"email":"ana@example.com"}`)
	}

	_, err := f.runner.Run(context.Background(), f.notifier, "loop", func(o *RunOptions) {
		o.SessionID = "shared"
		o.MaxTurns = 0
	})
	var mt *MaxTurnsExceededError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, 2, mt.MaxTurns)
	assert.Equal(t, 2, f.main.Calls())
}

func TestRun_ModelErrorAndUnknownModel(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueError(errors.New("rate limited"))

	_, err := f.run("hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	orphan := agent.MustNew("Orphan", func(o *agent.Options) { o.Model = "nope" })
	_, err = f.runner.Run(context.Background(), orphan, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `resolve model "nope"`)
}

func TestNewTraceID(t *testing.T) {
	id := NewTraceID()
	assert.True(t, strings.HasPrefix(id, "trace_"))
	assert.Len(t, id, len("trace_")+32)
}
