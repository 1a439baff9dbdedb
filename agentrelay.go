// Package agentrelay provides the chat façade of the support desk. An App
// binds a runner to a starting agent and fixed session coordinates so a
// front-end only deals in messages:
//
//	app := agentrelay.New(r, agents.Notification, func(o *agentrelay.Options) {
//		o.SessionID = "shared"
//		o.Context = "Hola Precioso"
//	})
//	reply, err := app.Chat(ctx, "Hello")
//
// Guardrail rejections and exhausted turn budgets are turned into a polite
// apology; every other failure is returned to the caller.
package agentrelay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/telemetry"
)

// Version of the desk.
const Version = "0.1.0"

// Apology is returned by Chat when a run is stopped by a guardrail or the
// turn limit.
const Apology = "I'm sorry, but I couldn't process your request at this time. Please try again later."

// Options configures an App.
type Options struct {
	// SessionID selects the conversation; the same id resumes it across
	// restarts when the runner uses a durable store.
	SessionID string
	// Context is passed to every run as RunContext data.
	Context any
	// TraceID groups all runs of this App; generated when empty.
	TraceID string
	// MaxTurns overrides the runner default when > 0.
	MaxTurns int
	// Metrics records run outcomes; optional.
	Metrics *telemetry.Metrics
	Logger  logging.Logger
}

// App is the chat entry point. It is safe for concurrent use; runs on the
// same App are serialized so session history stays linear.
type App struct {
	runner   *runner.Runner
	starting *agent.Agent
	opts     Options
	mu       sync.Mutex
}

// New creates an App starting every run at starting.
func New(r *runner.Runner, starting *agent.Agent, optFns ...func(o *Options)) *App {
	opts := Options{
		SessionID: "shared",
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.TraceID == "" {
		opts.TraceID = runner.NewTraceID()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &App{runner: r, starting: starting, opts: opts}
}

// SessionID returns the conversation the App writes to.
func (a *App) SessionID() string { return a.opts.SessionID }

// TraceID returns the trace group id shared by all runs of the App.
func (a *App) TraceID() string { return a.opts.TraceID }

// Chat runs message through the agents and returns the final reply.
func (a *App) Chat(ctx context.Context, message string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	res, err := a.runner.Run(ctx, a.starting, message, func(o *runner.RunOptions) {
		o.SessionID = a.opts.SessionID
		o.Context = a.opts.Context
		o.TraceID = a.opts.TraceID
		if a.opts.MaxTurns > 0 {
			o.MaxTurns = a.opts.MaxTurns
		}
	})
	if a.opts.Metrics != nil {
		a.opts.Metrics.ObserveRun(err, time.Since(start))
	}
	if err == nil {
		return res.FinalOutput, nil
	}

	var (
		in  *guardrail.InputTripwireError
		out *guardrail.OutputTripwireError
		mt  *runner.MaxTurnsExceededError
	)
	switch {
	case errors.As(err, &in):
		a.opts.Logger.Error("app.input_guardrail", "guardrail", in.Guardrail, "agent", in.Agent, "details", in.Result.OutputInfo)
		return Apology, nil
	case errors.As(err, &out):
		a.opts.Logger.Error("app.output_guardrail", "guardrail", out.Guardrail, "agent", out.Agent, "details", out.Result.OutputInfo)
		return Apology, nil
	case errors.As(err, &mt):
		a.opts.Logger.Error("app.max_turns", "max_turns", mt.MaxTurns, "agent", mt.Agent)
		return Apology, nil
	}
	return "", err
}
