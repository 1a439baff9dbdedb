// Command desk runs the support desk either as an interactive chat on the
// terminal or as an HTTP service.
//
//	desk                # chat on stdin/stdout
//	desk --debug        # debug logging
//	desk -l desk.log    # log to a file
//	desk --http=:8080   # serve POST /chat and GET /metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hupe1980/agentrelay"
	"github.com/hupe1980/agentrelay/config"
	"github.com/hupe1980/agentrelay/guardrail"
	"github.com/hupe1980/agentrelay/hook"
	"github.com/hupe1980/agentrelay/internal/desk"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/model/anthropic"
	"github.com/hupe1980/agentrelay/model/openai"
	"github.com/hupe1980/agentrelay/notify"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/session/sqlite"
	"github.com/hupe1980/agentrelay/telemetry"
)

// Flags are the command line options. Everything else comes from the
// environment (see config.Config).
type Flags struct {
	Debug   bool   `short:"d" long:"debug" description:"Enable debug logging"`
	LogFile string `short:"l" long:"log-file" description:"Write logs to this file instead of stderr"`
	HTTP    string `long:"http" optional:"yes" optional-value:"-" description:"Serve HTTP instead of the terminal chat (address defaults to HTTP_ADDR)"`
	Session string `short:"s" long:"session" description:"Session id; overrides SESSION_ID"`
	Version bool   `short:"v" long:"version" description:"Print the version and exit"`
}

func main() {
	var f Flags
	parser := flags.NewParser(&f, flags.Default)
	parser.Usage = "[OPTIONS]"
	if _, err := parser.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if f.Version {
		fmt.Println(agentrelay.Version)
		return
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "desk: %v\n", err)
		os.Exit(1)
	}
}

func run(f Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if f.Debug {
		cfg.LogLevel = "debug"
	}
	if f.Session != "" {
		cfg.SessionID = f.Session
	}

	logger, closeLog, err := newLogger(cfg, f.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	tracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		ServiceName:    "agentrelay-desk",
		ServiceVersion: agentrelay.Version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer shutdown(logger, "tracing", tracing.Shutdown)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	store, err := sqlite.Open(ctx, cfg.SessionDB, func(o *sqlite.Options) { o.Logger = logger })
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("desk.session_store.close", "error", err)
		}
	}()

	models, err := newProvider(cfg)
	if err != nil {
		return err
	}

	notifier := notify.NewAsync(newNotifier(cfg, logger), func(o *notify.AsyncOptions) { o.Logger = logger })
	defer shutdown(logger, "notifier", notifier.Close)

	var policy *guardrail.Policy
	if cfg.GuardrailPolicy != "" {
		p, err := guardrail.LoadPolicy(cfg.GuardrailPolicy)
		if err != nil {
			return err
		}
		policy = &p
	}

	agents, err := desk.Build(desk.Deps{
		Model:           cfg.Model,
		EscalationModel: cfg.EscalationModelOrDefault(),
		Notifier:        notifier,
		Policy:          policy,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	r := runner.New(func(o *runner.Options) {
		o.Models = models
		o.SessionStore = store
		o.Hooks = hook.Combine(metrics.Hooks(), hook.Logging(logger, "run"))
		o.MaxTurns = cfg.MaxTurns
		o.WorkflowName = cfg.WorkflowName
		o.Tracer = tracing.Tracer("github.com/hupe1980/agentrelay/runner")
		o.Logger = logger
	})

	app := agentrelay.New(r, agents.Notification, func(o *agentrelay.Options) {
		o.SessionID = cfg.SessionID
		o.Context = cfg.RunContext
		o.Metrics = metrics
		o.Logger = logger
	})

	logger.Info("desk.start", "version", agentrelay.Version, "provider", cfg.Provider, "model", cfg.Model,
		"session_db", cfg.SessionDB, "session_id", cfg.SessionID, "trace_id", app.TraceID())

	if f.HTTP != "" {
		addr := f.HTTP
		if addr == "-" {
			addr = cfg.HTTPAddr
		}
		return serve(ctx, addr, newHandler(app, reg, logger), logger)
	}
	return chat(ctx, app, os.Stdin, os.Stdout, isTerminal(os.Stdin))
}

func newLogger(cfg *config.Config, path string) (logging.Logger, func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = file
		closeFn = func() { _ = file.Close() }
	}

	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: out,
		Attrs:  []any{"workflow", cfg.WorkflowName},
	}), closeFn, nil
}

func newProvider(cfg *config.Config) (model.Provider, error) {
	var build func(name string) model.Model
	switch cfg.Provider {
	case "openai":
		build = func(name string) model.Model {
			return openai.NewModel(func(o *openai.Options) {
				o.Model = name
				o.APIKey = cfg.OpenAIAPIKey
				o.BaseURL = cfg.OpenAIBaseURL
			})
		}
	case "anthropic":
		build = func(name string) model.Model {
			return anthropic.NewModel(func(o *anthropic.Options) {
				o.Model = name
				o.APIKey = cfg.AnthropicAPIKey
			})
		}
	case "mock":
		build = func(name string) model.Model { return model.NewMockModel(name, "mock") }
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	reg := model.NewRegistry(nil)
	for _, name := range []string{cfg.Model, cfg.EscalationModelOrDefault()} {
		if _, err := reg.Resolve(name); err != nil {
			reg.Register(name, build(name))
		}
	}
	return reg, nil
}

func newNotifier(cfg *config.Config, logger logging.Logger) notify.Notifier {
	if cfg.PushoverEnabled() {
		return notify.NewPushoverNotifier(cfg.PushoverToken, cfg.PushoverUser)
	}
	return notify.LogNotifier{Logger: logger}
}

func shutdown(logger logging.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("desk.shutdown", "component", name, "error", err)
	}
}
