// Package guardrail implements input and output checks that can stop a run.
//
// A guardrail inspects text and returns a Result. When TripwireTriggered is
// set the run is aborted with an *InputTripwireError or *OutputTripwireError
// carrying the guardrail name and its OutputInfo.
package guardrail

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentrelay/core"
)

// Result is what a guardrail check reports.
type Result struct {
	OutputInfo        any  `json:"output_info,omitempty"`
	TripwireTriggered bool `json:"tripwire_triggered"`
}

// InputFunc checks the user input before any agent is invoked.
type InputFunc func(rc *core.RunContext, agent core.AgentDescriptor, input string) (Result, error)

// OutputFunc checks the final agent output before it is returned.
type OutputFunc func(rc *core.RunContext, agent core.AgentDescriptor, output string) (Result, error)

// Input is a named input guardrail.
type Input struct {
	Name  string
	Check InputFunc
}

// Output is a named output guardrail.
type Output struct {
	Name  string
	Check OutputFunc
}

// NewInput creates an input guardrail.
func NewInput(name string, fn InputFunc) Input { return Input{Name: name, Check: fn} }

// NewOutput creates an output guardrail.
func NewOutput(name string, fn OutputFunc) Output { return Output{Name: name, Check: fn} }

// InputTripwireError reports that an input guardrail rejected the user input.
type InputTripwireError struct {
	Guardrail string
	Agent     string
	Result    Result
}

func (e *InputTripwireError) Error() string {
	return fmt.Sprintf("input guardrail %q triggered for agent %q", e.Guardrail, e.Agent)
}

// OutputTripwireError reports that an output guardrail rejected the agent output.
type OutputTripwireError struct {
	Guardrail string
	Agent     string
	Result    Result
}

func (e *OutputTripwireError) Error() string {
	return fmt.Sprintf("output guardrail %q triggered for agent %q", e.Guardrail, e.Agent)
}

// RunInput evaluates all input guardrails concurrently. The first tripwire
// (or check failure) cancels the remaining checks and is returned.
func RunInput(rc *core.RunContext, agent core.AgentDescriptor, input string, guards []Input) error {
	if len(guards) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(rc.Context)
	for _, gr := range guards {
		g.Go(func() error {
			res, err := gr.Check(rc.WithContext(ctx), agent, input)
			if err != nil {
				return fmt.Errorf("input guardrail %q: %w", gr.Name, err)
			}
			if res.TripwireTriggered {
				return &InputTripwireError{Guardrail: gr.Name, Agent: agent.Name(), Result: res}
			}
			return nil
		})
	}

	return g.Wait()
}

// RunOutput evaluates all output guardrails concurrently.
func RunOutput(rc *core.RunContext, agent core.AgentDescriptor, output string, guards []Output) error {
	if len(guards) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(rc.Context)
	for _, gr := range guards {
		g.Go(func() error {
			res, err := gr.Check(rc.WithContext(ctx), agent, output)
			if err != nil {
				return fmt.Errorf("output guardrail %q: %w", gr.Name, err)
			}
			if res.TripwireTriggered {
				return &OutputTripwireError{Guardrail: gr.Name, Agent: agent.Name(), Result: res}
			}
			return nil
		})
	}

	return g.Wait()
}

// contextDone reports whether ctx is already cancelled.
func contextDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
