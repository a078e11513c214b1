package domain

// ConnState is the lifecycle position of one socket channel. Callback
// handlers only ever move a channel forward through the transition table;
// anything else indicates a wiring bug and is refused.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// transitions lists the legal moves of the channel state machine.
// Idle is only reachable through deactivation or teardown.
var transitions = map[ConnState][]ConnState{
	StateIdle:       {StateConnecting},
	StateConnecting: {StateOpen, StateClosing, StateClosed, StateIdle},
	StateOpen:       {StateClosing, StateClosed},
	StateClosing:    {StateClosed, StateIdle},
	StateClosed:     {StateConnecting, StateIdle},
}

// Legal reports whether a channel may move from one state to the next.
// Staying in place is always allowed.
func Legal(from, to ConnState) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
