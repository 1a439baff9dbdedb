package agentrelay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/internal/desk"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/notify"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/session"
	"github.com/hupe1980/agentrelay/telemetry"
)

type fixture struct {
	app     *App
	main    *model.MockModel
	sup     *model.MockModel
	store   *session.InMemoryStore
	metrics *telemetry.Metrics
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	return newFixtureWithRunner(t, func(*runner.Options) {}, optFns...)
}

func newFixtureWithRunner(t *testing.T, runnerFn func(o *runner.Options), optFns ...func(o *Options)) *fixture {
	t.Helper()

	f := &fixture{
		main:  model.NewMockModel("main", "mock"),
		sup:   model.NewMockModel("sup", "mock"),
		store: session.NewInMemoryStore(),
		reg:   prometheus.NewRegistry(),
	}
	f.metrics = telemetry.NewMetrics(f.reg)

	models := model.NewRegistry(nil)
	models.Register("main", f.main)
	models.Register("sup", f.sup)

	agents, err := desk.Build(desk.Deps{
		Model:           "main",
		EscalationModel: "sup",
		Notifier:        notify.NotifierFunc(func(context.Context, notify.Notification) error { return nil }),
	})
	require.NoError(t, err)

	r := runner.New(func(o *runner.Options) {
		o.Models = models
		o.SessionStore = f.store
		o.WorkflowName = "Openai Agent SDK Tutorial"
	}, runnerFn)

	fns := append([]func(o *Options){func(o *Options) {
		o.Context = "Hola Precioso"
		o.Metrics = f.metrics
	}}, optFns...)
	f.app = New(r, agents.Notification, fns...)
	return f
}

func TestChat_Reply(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueText("Hello! How can I help?")

	reply, err := f.app.Chat(context.Background(), "Hi there")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)

	assert.Equal(t, "shared", f.app.SessionID())
	assert.True(t, strings.HasPrefix(f.app.TraceID(), "trace_"))
	f.assertRun(t, "ok")

	sess, err := f.store.Get(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 2)
}

func TestChat_InputGuardrailApologizes(t *testing.T) {
	f := newFixture(t)

	reply, err := f.app.Chat(context.Background(), "this is shit")
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Zero(t, f.main.Calls())
	f.assertRun(t, "guardrail")
}

func TestChat_OutputGuardrailApologizes(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueText("whatever, stupid question")

	reply, err := f.app.Chat(context.Background(), "What is my balance?")
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
}

func TestChat_MaxTurnsApologizes(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxTurns = 1 })
	f.main.EnqueueToolCall("c1", "send_contact_request", `{"name":"Ana","email":"ana@example.com"}`)
	f.main.EnqueueText("never reached")

	reply, err := f.app.Chat(context.Background(), "Please contact me")
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	f.assertRun(t, "max_turns")
}

func TestChat_RunnerTurnLimitApplies(t *testing.T) {
	f := newFixtureWithRunner(t, func(o *runner.Options) { o.MaxTurns = 2 })
	for i := 0; i < 5; i++ {
		f.main.EnqueueToolCall(fmt.Sprintf("c%d", i), "send_contact_request", `{"name":"Ana","email":"ana@example.com"}`)
	}
	f.main.EnqueueText("done after 6 turns")

	reply, err := f.app.Chat(context.Background(), "Please contact me")
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Equal(t, 2, f.main.Calls())
	f.assertRun(t, "max_turns")
}

func TestChat_HandoffErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueToolCall("c1", desk.SupervisorHandoffTool, `{}`)

	reply, err := f.app.Chat(context.Background(), "Get me your supervisor")
	require.Error(t, err)
	assert.Empty(t, reply)

	var sv *handoff.SchemaValidationError
	assert.ErrorAs(t, err, &sv)
	f.assertRun(t, "handoff_error")
}

func TestChat_Escalation(t *testing.T) {
	f := newFixture(t)
	f.main.EnqueueToolCall("c1", desk.SupervisorHandoffTool, `{"reason":"asked for supervisor"}`)
	f.sup.EnqueueText("¿Qué quiere?")

	reply, err := f.app.Chat(context.Background(), "I want to talk to a supervisor")
	require.NoError(t, err)
	assert.Equal(t, "¿Qué quiere?", reply)
}

func TestChat_ModelErrorPropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("upstream unavailable")
	f.main.EnqueueError(boom)

	_, err := f.app.Chat(context.Background(), "Hi")
	assert.ErrorIs(t, err, boom)
	f.assertRun(t, "error")
}

func (f *fixture) assertRun(t *testing.T, outcome string) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP agentrelay_runs_total Completed runs by outcome
# TYPE agentrelay_runs_total counter
agentrelay_runs_total{outcome=%q} 1
`, outcome)
	require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "agentrelay_runs_total"))
}
