package model

import "github.com/google/uuid"

// AgentResult is the structured output an agent returns to the coordinator
type AgentResult struct {
	Content    string
	Confidence float64
	Meta       map[string]any
}

// SessionID identifies one question-answering session
type SessionID string

// NewSessionID generates a new unique SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// Answer is the final synthesized output of a session
type Answer struct {
	SessionID  SessionID
	Content    string
	Confidence float64
	Plan       Plan

	// Warning is set when the final memory write-back failed. The answer
	// itself is still valid.
	Warning string
}
