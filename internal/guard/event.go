// Package guard implements the connectivity reconciliation engine: an ordered
// event queue fed by notification and tick producers, consumed by a single
// state machine that pauses or resumes the protected process.
package guard

import "fmt"

// Event is a discrete input to the engine.
type Event int

const (
	EventConnect Event = iota + 1
	EventDisconnect
	EventTick
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventTick:
		return "tick"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Valid reports whether e is one of the known events.
func (e Event) Valid() bool {
	return e == EventConnect || e == EventDisconnect || e == EventTick
}

// State is the guard state owned by the engine.
type State int

const (
	StateUnset State = iota
	StateDisconnected
	StateConnected
	StateConnectWhenSafe
)

func (s State) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConnectWhenSafe:
		return "connect_when_safe"
	default:
		return "unknown"
	}
}

// Action is the side effect chosen for a transition.
type Action int

const (
	ActionNone Action = iota
	ActionPause
	ActionResume
)

func (a Action) String() string {
	switch a {
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	default:
		return "none"
	}
}
