package handoff

import "github.com/hupe1980/agentrelay/core"

// InputData is the conversation history bundle handed to an InputFilter.
//
// InputItems is what the target agent sees for the current turn, after
// InputHistory and PreHandoffItems. NewItems is kept for the session log.
type InputData struct {
	// InputHistory is the session history followed by the run's user input.
	InputHistory []core.Event
	// PreHandoffItems are items generated in this run before the handoff turn.
	PreHandoffItems []core.Event
	// NewItems are the items of the handoff turn, including the triggering
	// call and the handoff output.
	NewItems []core.Event
	// InputItems starts as a copy of NewItems; filters may reduce it.
	InputItems []core.Event
	// RunContext is the current run context. Filters must not replace it.
	RunContext *core.RunContext
}

// AgentInput returns the full transcript the target agent will receive.
func (d InputData) AgentInput() []core.Event {
	out := make([]core.Event, 0, len(d.InputHistory)+len(d.PreHandoffItems)+len(d.InputItems))
	out = append(out, d.InputHistory...)
	out = append(out, d.PreHandoffItems...)
	out = append(out, d.InputItems...)
	return out
}

// InputFilter rewrites the history bundle before the target agent takes over.
type InputFilter func(InputData) InputData

// PassThrough returns data unchanged.
func PassThrough(data InputData) InputData { return data }

// RemoveToolItems drops tool calls and tool results from everything the
// target sees. NewItems is left untouched.
func RemoveToolItems(data InputData) InputData {
	data.InputHistory = withoutTools(data.InputHistory)
	data.PreHandoffItems = withoutTools(data.PreHandoffItems)
	data.InputItems = withoutTools(data.InputItems)
	return data
}

// KeepLastItems limits the target's view to the last n items of the full
// transcript. A cut that would start on a tool result moves back to the
// item that issued the call, so the view can exceed n.
func KeepLastItems(n int) InputFilter {
	return func(data InputData) InputData {
		all := data.AgentInput()
		if n >= 0 && len(all) > n {
			start := len(all) - n
			for start > 0 && isToolResult(all[start]) {
				start--
			}
			all = all[start:]
		}
		data.InputHistory = nil
		data.PreHandoffItems = nil
		data.InputItems = all
		return data
	}
}

// Chain applies filters in order.
func Chain(filters ...InputFilter) InputFilter {
	return func(data InputData) InputData {
		for _, f := range filters {
			if f != nil {
				data = f(data)
			}
		}
		return data
	}
}

func isToolResult(ev core.Event) bool {
	return ev.Content != nil && ev.Content.Role == "tool"
}

func withoutTools(events []core.Event) []core.Event {
	out := make([]core.Event, 0, len(events))
	for _, ev := range events {
		if isToolResult(ev) {
			continue
		}
		if len(ev.GetFunctionCalls()) > 0 {
			if ev.Text() == "" {
				continue
			}
			ev = ev.Clone()
			ev.Content.Parts = textParts(ev.Content.Parts)
		}
		out = append(out, ev)
	}
	return out
}

func textParts(parts []core.Part) []core.Part {
	out := make([]core.Part, 0, len(parts))
	for _, p := range parts {
		if _, ok := p.(core.FunctionCallPart); !ok {
			out = append(out, p)
		}
	}
	return out
}
