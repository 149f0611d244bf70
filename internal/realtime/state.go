package realtime

// State is the connection state of an Adapter.
//
//	Idle         -> Connecting    Start
//	Disconnected -> Connecting    Start
//	Connecting   -> Connected     peer reports connected
//	Connected    -> Connecting    peer reports disconnected
//	Connecting   -> Disconnected  Stop, start failure, peer failed or closed
//	Connected    -> Disconnected  Stop, peer failed or closed
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Active reports whether a session is in progress.
func (s State) Active() bool {
	return s == StateConnecting || s == StateConnected
}

func canTransition(from, to State) bool {
	switch to {
	case StateConnecting:
		return from == StateIdle || from == StateDisconnected || from == StateConnected
	case StateConnected:
		return from == StateConnecting
	case StateDisconnected:
		return from == StateConnecting || from == StateConnected
	}
	return false
}

// PeerState is the connection state reported by the underlying peer.
type PeerState int

const (
	PeerStateNew PeerState = iota
	PeerStateConnecting
	PeerStateConnected
	PeerStateDisconnected
	PeerStateFailed
	PeerStateClosed
)

func (s PeerState) String() string {
	switch s {
	case PeerStateNew:
		return "new"
	case PeerStateConnecting:
		return "connecting"
	case PeerStateConnected:
		return "connected"
	case PeerStateDisconnected:
		return "disconnected"
	case PeerStateFailed:
		return "failed"
	case PeerStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
