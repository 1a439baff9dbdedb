package handoff

// State is a step of the handoff coordinator.
type State int

const (
	StateIdle State = iota
	StateTriggerReceived
	StatePayloadValidated
	StateCallbackExecuted
	StateHistoryFiltered
	StateControlTransferred
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggerReceived:
		return "trigger_received"
	case StatePayloadValidated:
		return "payload_validated"
	case StateCallbackExecuted:
		return "callback_executed"
	case StateHistoryFiltered:
		return "history_filtered"
	case StateControlTransferred:
		return "control_transferred"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
