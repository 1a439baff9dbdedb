// Package handoff implements agent-to-agent transfer of control.
//
// A handoff is exposed to the source agent's model as a tool. When the model
// calls it, Invoke runs the coordinator state machine:
//
//	Idle → TriggerReceived → PayloadValidated → CallbackExecuted → HistoryFiltered → ControlTransferred
//
// Any failure moves to Aborted and returns either a *SchemaValidationError
// (payload did not match the schema; the callback was not run) or a
// *CallbackError (the pre-transfer callback failed; no filtering and no
// transfer happened). Nothing is retried.
//
// The optional input filter receives an InputData bundle and decides what the
// target agent sees. Filtering never changes what is persisted: Transfer.NewItems
// always holds the unfiltered items of the turn.
package handoff
