package model

import "time"

// StateKind identifies the variant of a run State.
type StateKind string

const (
	StateScheduled StateKind = "Scheduled"
	StateSubmitted StateKind = "Submitted"
	StateRunning   StateKind = "Running"
	StateSuccess   StateKind = "Success"
	StateFailed    StateKind = "Failed"
)

// String returns the string representation of the state kind.
func (k StateKind) String() string {
	return string(k)
}

// IsTerminal returns true if the run is in a final state.
func (k StateKind) IsTerminal() bool {
	switch k {
	case StateSuccess, StateFailed:
		return true
	}
	return false
}

// State is a tagged status snapshot attached to a flow or task run. The
// control plane serializes and deserializes states opaquely; the agent only
// constructs Submitted and Failed variants and forwards the rest unchanged.
type State struct {
	Type      StateKind  `json:"type"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Submitted builds a Submitted state carrying deployment metadata.
func Submitted(message string) State {
	return newState(StateSubmitted, message)
}

// Failed builds a Failed state carrying the triggering error's message.
func Failed(message string) State {
	return newState(StateFailed, message)
}

func newState(kind StateKind, message string) State {
	now := time.Now().UTC()
	return State{Type: kind, Message: message, Timestamp: &now}
}
