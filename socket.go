package eio

import (
	"time"

	"github.com/revived-midas/rust-soket-io/parser"
)

type Socket interface {
	// Session ID (sid)
	ID() string

	// Available upgrades
	Upgrades() []string

	PingInterval() time.Duration
	PingTimeout() time.Duration

	// Name of the current transport
	TransportName() string

	// Lifecycle phase of the socket.
	State() SessionState

	// Time the last PING or PONG was observed. Zero until the first
	// heartbeat. Useful for diagnosing a session that is about to
	// time out.
	LastHeartbeat() time.Time

	// SendMessage sends a MESSAGE packet with the given payload.
	// Returns ErrNotConnected unless the socket is connected.
	SendMessage(data []byte, isBinary bool) error

	// Send writes raw packets to the current transport. Most
	// consumers want SendMessage.
	Send(packets ...*parser.Packet) error

	// Disconnect closes the session gracefully. Returns
	// ErrAlreadyClosed if it was closed before.
	Disconnect() error

	Close()
}
