// Package runner drives agents through the tool-calling loop.
//
// A Run loads the session history, evaluates the starting agent's input
// guardrails, then repeats model turns until the agent in control answers
// without tool calls:
//
//   - every turn counts against a shared limit (MaxTurnsExceededError)
//   - instructions are resolved again on every turn
//   - regular tool calls run in order; their errors go back to the model
//   - the first handoff call of a turn is honored, later ones are answered
//     with an error result
//   - after a handoff the target agent answers; the source does not regain
//     control in this run
//
// The final answer passes through the last agent's output guardrails before
// the user input and the unfiltered new items are appended to the session.
// Each run, turn, tool call and handoff is an OpenTelemetry span.
package runner
