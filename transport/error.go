package transport

import "fmt"

// Errors common to transports. Transport specific errors (HTTP status
// codes, WebSocket close codes) wrap these sentinels where they can be
// classified, so the session can react without knowing which transport
// it is talking to.
var (
	// ErrConnectionLost means the connection died underneath us: a
	// reset, an unexpected close or an I/O failure. A graceful CLOSE
	// packet from the peer is not a connection loss.
	ErrConnectionLost = fmt.Errorf("transport: connection lost")

	// ErrOversizedFrame means an outbound packet exceeded the frame
	// size limit of the transport and was not sent.
	ErrOversizedFrame = fmt.Errorf("transport: oversized frame")

	// ErrTimeout means a request or read deadline was exceeded.
	ErrTimeout = fmt.Errorf("transport: timeout")
)
