package infer

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// canTransition lists the allowed edges. Failed and Cancelled are reachable
// from every non-terminal state.
func (s State) canTransition(to State) bool {
	if s.IsTerminal() {
		return false
	}
	switch to {
	case StateFailed, StateCancelled:
		return true
	case StateLoading:
		return s == StateIdle
	case StateStreaming:
		return s == StateLoading
	case StateCompleted:
		return s == StateStreaming
	default:
		return false
	}
}
