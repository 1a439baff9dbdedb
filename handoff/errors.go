package handoff

import "fmt"

// SchemaValidationError reports a payload that does not match the handoff
// schema. The callback has not been invoked.
type SchemaValidationError struct {
	Tool string
	Err  error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("handoff %q: invalid payload: %v", e.Tool, e.Err)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// CallbackError wraps an error returned by the pre-transfer callback. No
// history filtering or transfer happened.
type CallbackError struct {
	Tool   string
	Target string
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("handoff %q to %q: callback failed: %v", e.Tool, e.Target, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

// ConfigError reports an invalid handoff definition. It is raised when the
// owning agent is constructed, never during a run.
type ConfigError struct {
	Tool   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid handoff %q: %s", e.Tool, e.Reason)
}
