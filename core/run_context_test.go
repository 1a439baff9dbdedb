package core

import (
	"context"
	"errors"
	"testing"
)

func TestRunContext_WithAgentSharesLimiterAndData(t *testing.T) {
	rc := newRunContextForTest()
	next := rc.WithAgent(testAgent{name: "Rude Escalation Agent", model: "gpt-5.2"})

	if rc.Agent.Name != "" {
		t.Error("original agent info must stay untouched")
	}
	if next.Agent.Name != "Rude Escalation Agent" || next.Agent.Model != "gpt-5.2" {
		t.Errorf("unexpected agent info: %+v", next.Agent)
	}
	if next.Limiter != rc.Limiter {
		t.Error("limiter must be shared across agent views")
	}
	if next.Data() != "Hola Precioso" || next.DataString() != "Hola Precioso" {
		t.Errorf("unexpected data: %v", next.Data())
	}
}

func TestRunContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := NewRunContext(ctx, "s", "r", nil, 0, nil)
	cancel()
	<-rc.Done()
	if !errors.Is(rc.Err(), context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", rc.Err())
	}
	if rc.DataString() != "" {
		t.Error("nil data should render empty")
	}
}

func TestTurnLimiter(t *testing.T) {
	l := NewTurnLimiter(2)
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	err := l.Increment()
	var tle *TurnLimitError
	if !errors.As(err, &tle) || tle.Max != 2 {
		t.Fatalf("expected TurnLimitError, got %v", err)
	}
	if l.Count() != 3 || l.Remaining() != 0 {
		t.Errorf("count=%d remaining=%d", l.Count(), l.Remaining())
	}

	if NewTurnLimiter(0).Remaining() != -1 {
		t.Error("zero max means unlimited")
	}
}
