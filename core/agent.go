package core

// AgentDescriptor is the read-only view of an agent exposed to dynamic
// instructions, hooks and handoff targets.
type AgentDescriptor interface {
	Name() string
	Model() string
	HandoffDescription() string
}

// AgentInfo carries identifying details about an agent used in contexts & events.
type AgentInfo struct{ Name, Model string }

// InfoOf snapshots an AgentDescriptor into an AgentInfo.
func InfoOf(a AgentDescriptor) AgentInfo {
	if a == nil {
		return AgentInfo{}
	}
	return AgentInfo{Name: a.Name(), Model: a.Model()}
}
