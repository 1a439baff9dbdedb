// Package core provides the foundational domain types shared by every other
// package of agentrelay:
//
//   - Content / Part (role based message segments with a tagged JSON codec)
//   - Event (one item of conversation history)
//   - Session / SessionStore (persisted history keyed by session id)
//   - RunContext / ToolContext (scoped execution state handed to instructions,
//     tools, guardrails, hooks and handoff callbacks)
//   - AgentDescriptor (the read-only view of an agent seen by user code)
//
// The package keeps implementation concerns (persistence, run loop, concrete
// agents) out of scope, exposing small interfaces to enable custom backends.
package core
