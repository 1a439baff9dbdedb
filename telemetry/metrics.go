package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/handoff"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/runner"
)

// Metrics holds the Prometheus collectors of the desk.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	turnsTotal     *prometheus.CounterVec
	tokensTotal    *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	handoffsTotal  *prometheus.CounterVec
	tripsTotal     *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_runs_total",
			Help: "Completed runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentrelay_run_duration_seconds",
			Help:    "Wall time of runs",
			Buckets: prometheus.DefBuckets,
		}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_model_calls_total",
			Help: "Model calls by agent",
		}, []string{"agent"}),
		tokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_tokens_total",
			Help: "Tokens used by agent and type",
		}, []string{"agent", "type"}),
		toolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_tool_calls_total",
			Help: "Tool calls by tool and status",
		}, []string{"tool", "status"}),
		handoffsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_handoffs_total",
			Help: "Completed handoffs",
		}, []string{"from", "to"}),
		tripsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentrelay_guardrail_trips_total",
			Help: "Guardrail tripwires by guardrail and kind",
		}, []string{"guardrail", "kind"}),
	}
}

// Hooks returns run hooks counting model calls, tokens, tool calls and handoffs.
func (m *Metrics) Hooks() hook.Hooks {
	return hook.Funcs{
		LLMEnd: func(_ *core.RunContext, agent core.AgentDescriptor, resp model.Response) {
			m.turnsTotal.WithLabelValues(agent.Name()).Inc()
			if resp.Usage != nil {
				m.tokensTotal.WithLabelValues(agent.Name(), "prompt").Add(float64(resp.Usage.PromptTokens))
				m.tokensTotal.WithLabelValues(agent.Name(), "completion").Add(float64(resp.Usage.CompletionTokens))
			}
		},
		ToolEnd: func(_ *core.RunContext, _ core.AgentDescriptor, call core.FunctionCall, _ any, err error) {
			status := "ok"
			if err != nil {
				status = "error"
			}
			m.toolCallsTotal.WithLabelValues(call.Name, status).Inc()
		},
		Handoff: func(_ *core.RunContext, from, to core.AgentDescriptor) {
			m.handoffsTotal.WithLabelValues(from.Name(), to.Name()).Inc()
		},
	}
}

// ObserveRun records the outcome of a run.
func (m *Metrics) ObserveRun(err error, d time.Duration) {
	m.runDuration.Observe(d.Seconds())
	m.runsTotal.WithLabelValues(Outcome(err)).Inc()

	var in *guardrail.InputTripwireError
	var out *guardrail.OutputTripwireError
	switch {
	case errors.As(err, &in):
		m.tripsTotal.WithLabelValues(in.Guardrail, "input").Inc()
	case errors.As(err, &out):
		m.tripsTotal.WithLabelValues(out.Guardrail, "output").Inc()
	}
}

// Outcome classifies a run error into a metric label.
func Outcome(err error) string {
	var (
		in  *guardrail.InputTripwireError
		out *guardrail.OutputTripwireError
		mt  *runner.MaxTurnsExceededError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &in), errors.As(err, &out):
		return "guardrail"
	case errors.As(err, &mt):
		return "max_turns"
	case handoff.IsHandoffError(err):
		return "handoff_error"
	default:
		return "error"
	}
}
