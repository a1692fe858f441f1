package live

// State is the lifecycle state of a [Controller].
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is delivered to the status listener on every state transition.
type Status struct {
	State State

	// SessionID identifies the session the transition belongs to. It stays
	// set on the final [StateDisconnected] notification of a session.
	SessionID string

	// Cause is the error that ended the session, if any. A remote close
	// carries [ErrTransportClosed] here while [Controller.Err] stays nil.
	Cause error
}

// Snapshot is a point-in-time view of a running session.
type Snapshot struct {
	State     State
	SessionID string

	// Cursor is the playback cursor in output sample frames.
	Cursor int64

	// Clock is the number of frames the speaker has rendered.
	Clock int64

	// Queued is the number of buffers waiting in the playback queue.
	Queued int

	// Volume is the most recent microphone level in [0,1].
	Volume float64
}
