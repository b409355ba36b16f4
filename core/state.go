package live

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateAwaitingHandshake
	StateReady
	StateClosing
	// StateFailed is terminal for the attempt that failed; a new Connect is
	// accepted from it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHandshake:
		return "awaiting_handshake"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) canConnect() bool {
	return s == StateIdle || s == StateFailed
}
