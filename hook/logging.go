package hook

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
)

// Logging returns hooks that log every lifecycle event at debug level (tool
// failures and handoffs at info/warn). scope distinguishes agent-level from
// run-level hooks in the output.
func Logging(logger logging.Logger, scope string) Hooks {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return Funcs{
		AgentStart: func(rc *core.RunContext, agent core.AgentDescriptor) {
			logger.Debug("hook.agent.start", "scope", scope, "agent", agent.Name(), "run_id", rc.RunID, "context", rc.DataString())
		},
		AgentEnd: func(rc *core.RunContext, agent core.AgentDescriptor, output string) {
			logger.Debug("hook.agent.end", "scope", scope, "agent", agent.Name(), "run_id", rc.RunID, "output_len", len(output))
		},
		LLMStart: func(rc *core.RunContext, agent core.AgentDescriptor, req model.Request) {
			logger.Debug("hook.llm.start", "scope", scope, "agent", agent.Name(), "messages", len(req.Contents), "tools", len(req.Tools))
		},
		LLMEnd: func(rc *core.RunContext, agent core.AgentDescriptor, resp model.Response) {
			logger.Debug("hook.llm.end", "scope", scope, "agent", agent.Name(), "finish_reason", resp.FinishReason)
		},
		ToolStart: func(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall) {
			logger.Debug("hook.tool.start", "scope", scope, "agent", agent.Name(), "tool", call.Name, "fc_id", call.ID)
		},
		ToolEnd: func(rc *core.RunContext, agent core.AgentDescriptor, call core.FunctionCall, _ any, err error) {
			if err != nil {
				logger.Warn("hook.tool.error", "scope", scope, "agent", agent.Name(), "tool", call.Name, "error", err)
				return
			}
			logger.Debug("hook.tool.end", "scope", scope, "agent", agent.Name(), "tool", call.Name)
		},
		Handoff: func(rc *core.RunContext, from, to core.AgentDescriptor) {
			logger.Info("hook.handoff", "scope", scope, "from", from.Name(), "to", to.Name(), "run_id", rc.RunID)
		},
	}
}
