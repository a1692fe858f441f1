package live

import "errors"

var (
	// ErrPermissionDenied means the microphone could not be acquired. The
	// session never reaches [StateActive] and no transport is dialled.
	ErrPermissionDenied = errors.New("live: microphone permission denied")

	// ErrConnectFailure means the transport failed to open.
	ErrConnectFailure = errors.New("live: connect failed")

	// ErrTransport means the transport failed after it had opened.
	ErrTransport = errors.New("live: transport error")

	// ErrTransportClosed means the remote side closed the session. It ends the
	// session but is not reported through [Controller.Err].
	ErrTransportClosed = errors.New("live: transport closed")

	// ErrDecode means an inbound audio chunk was malformed. Only the chunk is
	// dropped.
	ErrDecode = errors.New("live: decode audio chunk")

	// ErrStaleChunk means a chunk finished decoding after an interruption or
	// teardown and was discarded.
	ErrStaleChunk = errors.New("live: stale audio chunk")

	// ErrSessionActive is returned by [Controller.Start] while a session exists.
	ErrSessionActive = errors.New("live: session already active")

	// ErrControllerClosed is returned by [Controller.Start] after
	// [Controller.Close].
	ErrControllerClosed = errors.New("live: controller closed")
)

// fatal reports whether err should leave a user-visible error after teardown.
func fatal(err error) bool {
	return err != nil && !errors.Is(err, ErrTransportClosed)
}
