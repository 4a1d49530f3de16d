package net

import "fmt"

// SessionState represents the console session's current phase.
type SessionState int

const (
	StateAwaitAuth SessionState = iota // connected, password required
	StateReady                         // commands accepted
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateAwaitAuth:
		return "AwaitAuth"
	case StateReady:
		return "Ready"
	case StateClosing:
		return "Closing"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
