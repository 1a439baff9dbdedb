package tool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/notify"
)

// SendContactRequestName is the tool name exposed to models.
const SendContactRequestName = "send_contact_request"

// ContactRequest is the argument object of the send_contact_request tool.
type ContactRequest struct {
	Name    string `json:"name" jsonschema:"required,minLength=1,description=Full name of the user"`
	Email   string `json:"email" jsonschema:"required,minLength=3,description=Email address to reach the user"`
	Message string `json:"message,omitempty" jsonschema:"description=What the user wants to be contacted about"`
}

// Validate rejects addresses without an @.
func (r *ContactRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return errors.New("email must contain @")
	}
	return nil
}

// NewSendContactRequestTool returns a tool that records a user's contact
// details and pushes them to the back office through n.
func NewSendContactRequestTool(n notify.Notifier) *FunctionTool {
	return NewTypedFunctionTool(
		SendContactRequestName,
		"Record the user's contact details and notify the back office so someone gets in touch.",
		func(tc *core.ToolContext, req ContactRequest) (any, error) {
			msg := fmt.Sprintf("%s <%s>", req.Name, req.Email)
			if req.Message != "" {
				msg += ": " + req.Message
			}

			tc.LogInfo("tool.contact_request", "email", req.Email)

			if err := n.Notify(tc.Context(), notify.Notification{Title: "Contact request", Message: msg}); err != nil {
				return nil, fmt.Errorf("send notification: %w", err)
			}

			return map[string]any{"status": "sent", "name": req.Name}, nil
		},
	)
}
