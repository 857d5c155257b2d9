package eio

import "fmt"

// The only errors a consumer observes. Transport and codec failures
// are translated into these before they reach a callback or a return
// value.
var (
	// ErrHandshakeFailed means no transport could complete the
	// initial handshake with the server.
	ErrHandshakeFailed = fmt.Errorf("eio: handshake failed")

	// ErrNotConnected is returned by Send and SendMessage when the
	// socket isn't in a connected state.
	ErrNotConnected = fmt.Errorf("eio: not connected")

	// ErrProtocolViolation means the peer sent something the protocol
	// forbids (an unparsable frame, an unexpected OPEN packet). The
	// socket is closed.
	ErrProtocolViolation = fmt.Errorf("eio: protocol violation")

	// ErrPingTimeout means no heartbeat was observed within
	// pingInterval + pingTimeout. The socket is closed.
	ErrPingTimeout = fmt.Errorf("eio: ping timeout")

	// ErrAlreadyClosed is returned by Disconnect on a socket that was
	// closed before.
	ErrAlreadyClosed = fmt.Errorf("eio: already closed")
)

var errUpgradeTimeoutExceeded = fmt.Errorf("upgradeTimeout exceeded")

// This is a wrapper for the errors internal to engine.io.
//
// If you see this error, this means that the problem is
// neither a network error, nor an error caused by you, but
// the source of the error is engine.io. Open an issue on GitHub.
type InternalError struct {
	err error
}

func (e InternalError) Error() string {
	return "eio: internal error: " + e.err.Error()
}

func (e InternalError) Unwrap() error { return e.err }

func wrapInternalError(err error) *InternalError {
	return &InternalError{err: err}
}
