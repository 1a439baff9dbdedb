package core

import "testing"

func TestToolContext_Accessors(t *testing.T) {
	rc := newRunContextForTest().WithAgent(testAgent{name: "Helpful Notification Agent"})
	tc := NewToolContext(rc, "fc-1")

	if tc.FunctionCallID() != "fc-1" {
		t.Errorf("FunctionCallID = %q", tc.FunctionCallID())
	}
	if tc.SessionID() != "sess-x" || tc.RunID() != "run-x" {
		t.Errorf("ids = %q/%q", tc.SessionID(), tc.RunID())
	}
	if tc.AgentName() != "Helpful Notification Agent" {
		t.Errorf("AgentName = %q", tc.AgentName())
	}
	if tc.Data() != "Hola Precioso" {
		t.Errorf("Data = %v", tc.Data())
	}
	if tc.Logger() == nil || tc.Context() == nil || tc.RunContext() != rc {
		t.Error("expected logger, context and run context to be wired")
	}
}
