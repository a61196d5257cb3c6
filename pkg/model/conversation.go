package model

import "time"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser        Role = "user"
	RoleCoordinator Role = "coordinator"
	RoleResearch    Role = "research"
	RoleAnalysis    Role = "analysis"
	RoleMemory      Role = "memory"
)

// ConversationTurn is one append-only entry of the session conversation.
// Seq is assigned by the memory service and is strictly increasing and
// gap-free within a session.
type ConversationTurn struct {
	Seq       int            `json:"seq"`
	Role      Role           `json:"role"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AgentStateEntry is one append-only snapshot of agent state, recorded per
// state-affecting action. It exists for traceability, not control flow.
type AgentStateEntry struct {
	Agent     string         `json:"agent"`
	Task      string         `json:"task"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}
