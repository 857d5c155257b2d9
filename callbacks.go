package eio

import "github.com/revived-midas/rust-soket-io/parser"

type (
	// Fired for every MESSAGE packet, in arrival order.
	//
	// Callbacks run on the transport's receive loop. A callback that
	// blocks stalls packet dispatch, including PING handling: offload
	// long work to another goroutine.
	MessageCallback func(data []byte, isBinary bool)

	// Fired for every decoded packet, including the ones the socket
	// consumes internally (PING, PONG, CLOSE, UPGRADE). A protocol
	// layer on top can use this as a raw tap; ordinary consumers want
	// OnMessage.
	PacketCallback func(packets ...*parser.Packet)

	ErrorCallback func(err error)

	// err can be nil. Always do a nil check.
	CloseCallback func(reason Reason, err error)
)

type Callbacks struct {
	OnMessage MessageCallback
	OnPacket  PacketCallback
	OnError   ErrorCallback
	OnClose   CloseCallback
}

func (c *Callbacks) setMissing() {
	if c.OnMessage == nil {
		c.OnMessage = func(data []byte, isBinary bool) {}
	}
	if c.OnPacket == nil {
		c.OnPacket = func(packets ...*parser.Packet) {}
	}
	if c.OnError == nil {
		c.OnError = func(err error) {}
	}
	if c.OnClose == nil {
		c.OnClose = func(reason Reason, err error) {}
	}
}
