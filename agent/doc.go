// Package agent defines the conversational Agent: a name, an instruction
// (static text or a function of the run context), a model identifier, tools,
// input and output guardrails, lifecycle hooks and handoffs to other agents.
//
// Agents are immutable after New and carry no execution logic; the runner
// package drives the tool-calling loop. Definition errors such as an invalid
// tool name are reported by New, never during a run.
package agent
