package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
)

// Func is the implementation behind a FunctionTool. args have already been
// checked against the tool's schema.
type Func func(tc *core.ToolContext, args map[string]any) (any, error)

// FunctionTool exposes a Go function as a tool. It holds no mutable state
// and is safe for concurrent use.
//
// Call reports failures as *ToolError: schema mismatches carry
// CodeValidation, plain errors from the function carry CodeExecution and a
// *ToolError returned by the function is passed through unchanged.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          Func
}

var _ Tool = (*FunctionTool)(nil)

// NewFunctionTool creates a tool from an explicit JSON schema.
//
//	lookup := NewFunctionTool("lookup_account", "Find an account by IBAN",
//	  map[string]any{
//	    "type":       "object",
//	    "properties": map[string]any{"iban": map[string]any{"type": "string"}},
//	    "required":   []string{"iban"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return accounts.Find(tc.Context(), args["iban"].(string))
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// ArgsValidator can be implemented by typed argument structs for checks a
// JSON schema cannot express.
type ArgsValidator interface {
	Validate() error
}

// NewTypedFunctionTool creates a tool whose arguments decode into T. The
// schema is reflected from T's json and jsonschema tags; if *T implements
// ArgsValidator it runs after decoding.
func NewTypedFunctionTool[T any](name, description string, fn func(tc *core.ToolContext, args T) (any, error)) *FunctionTool {
	return NewFunctionTool(name, description, util.SchemaFor[T](), func(tc *core.ToolContext, raw map[string]any) (any, error) {
		var args T
		if err := decodeArgs(raw, &args); err != nil {
			return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation}
		}
		if v, ok := any(&args).(ArgsValidator); ok {
			if err := v.Validate(); err != nil {
				return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, Details: err}
			}
		}
		return fn(tc, args)
	})
}

func (t *FunctionTool) Name() string { return t.name }

func (t *FunctionTool) Description() string { return t.description }

func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args and runs the function.
func (t *FunctionTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	start := time.Now()
	log := tc.Logger()

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		log.Warn("tool.call.invalid", "tool", t.name, "fc_id", tc.FunctionCallID(), "error", err.Error())
		return nil, &ToolError{
			Tool:    t.name,
			Message: "parameter validation failed: " + err.Error(),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(tc, args)
	if err != nil {
		var te *ToolError
		if !errors.As(err, &te) {
			te = &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
		}
		log.Error("tool.call.error", "tool", t.name, "fc_id", tc.FunctionCallID(), "code", te.Code, "error", te.Message)
		return nil, te
	}

	log.Debug("tool.call.done", "tool", t.name, "fc_id", tc.FunctionCallID(), "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func decodeArgs(raw map[string]any, v any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
