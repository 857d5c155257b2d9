package eio

// SessionState is the lifecycle phase of a socket. State transitions
// are driven by the socket itself; consumers only observe them.
type SessionState int

const (
	StateIdle SessionState = iota
	StateHandshaking
	StateConnected
	StateUpgrading
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshaking:
		return "handshaking"
	case StateConnected:
		return "connected"
	case StateUpgrading:
		return "upgrading"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// The session keeps serving traffic on the old transport while an
// upgrade probe is in flight, so Upgrading counts as connected.
func (s SessionState) connected() bool {
	return s == StateConnected || s == StateUpgrading
}
