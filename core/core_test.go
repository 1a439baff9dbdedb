package core

import "context"

type testLogger struct{}

func (l testLogger) Debug(string, ...any) {}
func (l testLogger) Info(string, ...any)  {}
func (l testLogger) Warn(string, ...any)  {}
func (l testLogger) Error(string, ...any) {}

type testAgent struct{ name, model, desc string }

func (a testAgent) Name() string               { return a.name }
func (a testAgent) Model() string              { return a.model }
func (a testAgent) HandoffDescription() string { return a.desc }

func newRunContextForTest() *RunContext {
	return NewRunContext(context.Background(), "sess-x", "run-x", "Hola Precioso", 3, testLogger{})
}
