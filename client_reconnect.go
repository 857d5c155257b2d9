package eio

import (
	"time"

	"github.com/cenkalti/backoff"
	"github.com/revived-midas/rust-soket-io/internal/sync"
	"github.com/revived-midas/rust-soket-io/parser"
)

// Reconnection is a policy of the Dial facade, built on repeated
// dialOnce calls. The socket underneath reports a terminal close with
// its cause; this wrapper decides whether to redial.
type reconnectingSocket struct {
	socket   *clientSocket
	socketMu sync.RWMutex

	rawURL    string
	config    *ClientConfig
	callbacks Callbacks // The consumer's callbacks.

	maxAttempts uint64

	closeChan chan struct{}
	closeOnce sync.Once
	debug     Debugger
}

func dialWithReconnect(rawURL string, callbacks *Callbacks, config *ClientConfig) (Socket, error) {
	rs := &reconnectingSocket{
		rawURL:      rawURL,
		config:      config,
		callbacks:   *callbacks,
		maxAttempts: config.ReconnectionAttempts,
		closeChan:   make(chan struct{}),
		debug:       NewNoopDebugger(),
	}
	if config.Debug {
		rs.debug = NewPrintDebugger().WithContext("eio: reconnectingSocket")
	}

	socket, err := dialOnce(rawURL, rs.innerCallbacks(), config)
	if err != nil {
		return nil, err
	}
	rs.socket = socket
	return rs, nil
}

func (rs *reconnectingSocket) innerCallbacks() *Callbacks {
	c := &Callbacks{
		OnMessage: rs.callbacks.OnMessage,
		OnPacket:  rs.callbacks.OnPacket,
		OnError:   rs.callbacks.OnError,
		OnClose:   rs.onSocketClose,
	}
	c.setMissing()
	return c
}

func (rs *reconnectingSocket) onSocketClose(reason Reason, err error) {
	if reason == ReasonForcedClose {
		rs.shutdown(reason, err)
		return
	}

	select {
	case <-rs.closeChan:
		return
	default:
	}

	rs.debug.Log("Socket closed. Going to reconnect. Reason", reason)
	if err != nil {
		rs.callbacks.OnError(err)
	}
	go rs.reconnect(reason, err)
}

func (rs *reconnectingSocket) reconnect(reason Reason, cause error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // Try until closeChan or maxAttempts says otherwise.

	var bo backoff.BackOff = b
	if rs.maxAttempts > 0 {
		bo = backoff.WithMaxRetries(b, rs.maxAttempts)
	}

	op := func() error {
		select {
		case <-rs.closeChan:
			return backoff.Permanent(ErrAlreadyClosed)
		default:
		}

		socket, err := dialOnce(rs.rawURL, rs.innerCallbacks(), rs.config)
		if err != nil {
			rs.debug.Log("Reconnect attempt failed", err)
			return err
		}

		rs.socketMu.Lock()
		rs.socket = socket
		rs.socketMu.Unlock()
		rs.debug.Log("Reconnected. New sid", socket.ID())
		return nil
	}

	err := backoff.Retry(op, bo)
	if err != nil {
		// Out of attempts. The session is now terminally closed.
		rs.shutdown(reason, cause)
	}
}

func (rs *reconnectingSocket) shutdown(reason Reason, err error) {
	rs.closeOnce.Do(func() {
		close(rs.closeChan)
		rs.callbacks.OnClose(reason, err)
	})
}

func (rs *reconnectingSocket) current() *clientSocket {
	rs.socketMu.RLock()
	defer rs.socketMu.RUnlock()
	return rs.socket
}

func (rs *reconnectingSocket) ID() string { return rs.current().ID() }

func (rs *reconnectingSocket) Upgrades() []string { return rs.current().Upgrades() }

func (rs *reconnectingSocket) PingInterval() time.Duration { return rs.current().PingInterval() }

func (rs *reconnectingSocket) PingTimeout() time.Duration { return rs.current().PingTimeout() }

func (rs *reconnectingSocket) TransportName() string { return rs.current().TransportName() }

func (rs *reconnectingSocket) State() SessionState { return rs.current().State() }

func (rs *reconnectingSocket) LastHeartbeat() time.Time { return rs.current().LastHeartbeat() }

func (rs *reconnectingSocket) SendMessage(data []byte, isBinary bool) error {
	return rs.current().SendMessage(data, isBinary)
}

func (rs *reconnectingSocket) Send(packets ...*parser.Packet) error {
	return rs.current().Send(packets...)
}

func (rs *reconnectingSocket) Disconnect() error {
	return rs.current().Disconnect()
}

func (rs *reconnectingSocket) Close() {
	rs.current().Close()
}
