package eio

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/revived-midas/rust-soket-io/internal/sync"

	_websocket "nhooyr.io/websocket"

	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/revived-midas/rust-soket-io/transport"
	"github.com/revived-midas/rust-soket-io/transport/polling"
	"github.com/revived-midas/rust-soket-io/transport/websocket"
)

type clientSocket struct {
	transport   ClientTransport
	transportMu sync.RWMutex

	state   SessionState
	stateMu sync.RWMutex

	url *url.URL

	upgradeTimeout time.Duration
	upgradeDone    func(transportName string)

	// The upgrade probe is tried at most once per session.
	upgradeOnce sync.Once

	// HTTP client to use on transports.
	httpClient *http.Client

	// HTTP headers to use on transports.
	requestHeader *transport.RequestHeader

	// WebSocket dialer to use on transports.
	wsDialOptions *_websocket.DialOptions

	// Frame size limit for the WebSocket transport. 0 means no limit.
	maxFrameSize int64

	// These are set after the handshake.
	sid          string
	upgrades     []string
	pingInterval time.Duration
	pingTimeout  time.Duration
	maxPayload   int64

	callbacks Callbacks

	pingChan chan struct{}

	lastHeartbeat   time.Time
	lastHeartbeatMu sync.Mutex

	closeChan chan struct{}
	closeOnce sync.Once

	debug Debugger
}

func (s *clientSocket) connect(transports []string) (err error) {
	s.transportMu.Lock()
	defer s.transportMu.Unlock()

	s.setState(StateHandshaking)

	for _, name := range transports {
		transports = transports[1:]
		c := transport.NewCallbacks()

		var t ClientTransport
		switch name {
		case "polling":
			t = polling.NewClientTransport(
				c,
				ProtocolVersion,
				*s.url,
				s.requestHeader,
				s.httpClient,
			)
		case "websocket":
			t = websocket.NewClientTransport(
				c,
				"",
				ProtocolVersion,
				*s.url,
				s.requestHeader,
				s.wsDialOptions,
				s.maxFrameSize,
			)
		default:
			s.setState(StateClosed)
			return fmt.Errorf("eio: invalid transport name: %s", name)
		}
		s.debug.Log("Transport is set to", name)
		c.Set(s.onPacket, s.onTransportClose)

		var hr *parser.HandshakeResponse
		hr, err = t.Handshake()
		if err != nil {
			s.debug.Log("Handshake failed", err)
			continue
		}
		s.transport = t
		s.sid = hr.SID
		s.upgrades = hr.Upgrades
		s.pingInterval = hr.GetPingInterval()
		s.pingTimeout = hr.GetPingTimeout()
		s.maxPayload = hr.MaxPayload
		s.debug.Log("pingInterval", s.pingInterval)
		s.debug.Log("pingTimeout", s.pingTimeout)

		go t.Run()
		break
	}

	if s.transport == nil {
		s.setState(StateClosed)
		if err == nil {
			err = fmt.Errorf("no transports to try")
		}
		return fmt.Errorf("%w: %s", ErrHandshakeFailed, err)
	}

	s.setState(StateConnected)
	go s.maybeUpgrade(transports, s.upgrades)
	go s.handleTimeout()
	return nil
}

func (s *clientSocket) ID() string { return s.sid }

func (s *clientSocket) Upgrades() []string { return s.upgrades }

func (s *clientSocket) PingInterval() time.Duration { return s.pingInterval }

func (s *clientSocket) PingTimeout() time.Duration { return s.pingTimeout }

func (s *clientSocket) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *clientSocket) setState(state SessionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// Transitions to `to` only if the current state is `from`. Prevents a
// concurrent close from being overwritten by a late probe result.
func (s *clientSocket) setStateIf(from, to SessionState) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// The server is the timing authority: it emits PING at pingInterval
// cadence and we must see one within pingInterval + pingTimeout, or
// the connection is silently dead.
func (s *clientSocket) handleTimeout() {
	for {
		timeout := s.pingInterval + s.pingTimeout

		select {
		case <-s.pingChan:
			s.debug.Log("handleTimeout", "ping received")
		case <-time.After(timeout):
			s.debug.Log("handleTimeout", "timed out")
			s.close(ReasonPingTimeout, ErrPingTimeout)
			return
		case <-s.closeChan:
			s.debug.Log("handleTimeout", "socket was closed")
			return
		}
	}
}

func (s *clientSocket) maybeUpgrade(transports []string, upgrades []string) {
	if s.TransportName() == "websocket" {
		s.debug.Log("maybeUpgrade", "current transport is websocket. already upgraded")
		return
	} else if !findTransport(upgrades, "websocket") {
		s.debug.Log("maybeUpgrade", "couldn't find 'websocket' in handshake received from server")
		return
	} else if !findTransport(transports, "websocket") {
		s.debug.Log("maybeUpgrade", "couldn't find 'websocket' in `Transports` configuration option")
		return
	}

	s.upgradeOnce.Do(func() {
		c := transport.NewCallbacks()
		t := websocket.NewClientTransport(c, s.sid, ProtocolVersion, *s.url, s.requestHeader, s.wsDialOptions, s.maxFrameSize)
		s.tryUpgradeTo(t, c)
	})
}

// An upgrade probe: PING with a distinguishing token on the candidate
// transport, expect the matching PONG back. Probe failures leave the
// session on polling and are never surfaced to the consumer.
func (s *clientSocket) tryUpgradeTo(t ClientTransport, c *transport.Callbacks) (ok bool) {
	if !s.setStateIf(StateConnected, StateUpgrading) {
		s.debug.Log("tryUpgradeTo", "socket is not connected. skipping the probe")
		return false
	}

	done := make(chan struct{})
	once := new(sync.Once)

	onPacket := func(packet *parser.Packet) {
		s.debug.Log("tryUpgradeTo", "packet received", packet)

		switch packet.Type {
		case parser.PacketTypePong:
			pong := string(packet.Data)
			if pong != "probe" {
				s.debug.Log("tryUpgradeTo", "pong with invalid data", pong)
				t.Close()
				return
			}

			once.Do(func() { close(done) })
			s.finishUpgradeTo(t, c)
		default:
			t.Close()
			s.debug.Log("tryUpgradeTo", "invalid packet type received", packet.Type)
		}
	}

	c.Set(func(packets ...*parser.Packet) {
		for _, packet := range packets {
			onPacket(packet)
		}
	}, nil)

	_, err := t.Handshake()
	if err != nil {
		t.Close()
		s.debug.Log("tryUpgradeTo", "handshake failed", err)
		s.setStateIf(StateUpgrading, StateConnected)
		return false
	}
	go t.Run()

	ping, err := parser.NewPacket(parser.PacketTypePing, false, []byte("probe"))
	if err != nil {
		t.Close()
		s.onError(wrapInternalError(fmt.Errorf("upgrade failed: %w", err)))
		s.setStateIf(StateUpgrading, StateConnected)
		return false
	}
	go t.Send(ping)

	select {
	case <-done:
		s.debug.Log("tryUpgradeTo", "channel `done` is triggered")
		return true
	case <-time.After(s.upgradeTimeout):
		t.Close()
		s.debug.Log("tryUpgradeTo", errUpgradeTimeoutExceeded.Error())
		s.setStateIf(StateUpgrading, StateConnected)
		return false
	}
}

func (s *clientSocket) finishUpgradeTo(t ClientTransport, c *transport.Callbacks) {
	p, err := parser.NewPacket(parser.PacketTypeUpgrade, false, nil)
	if err != nil {
		s.onError(wrapInternalError(fmt.Errorf("upgrade failed: %w", err)))
		return
	}

	c.Set(s.onPacket, s.onTransportClose)

	s.transportMu.Lock()
	defer s.transportMu.Unlock()

	old := s.transport
	s.transport = t

	old.Discard()

	t.Send(p)
	s.setStateIf(StateUpgrading, StateConnected)
	s.debug.Log("finishUpgradeTo", "upgraded to", t.Name())
	// Don't block
	go s.upgradeDone(t.Name())
}

func findTransport(transports []string, name string) bool {
	for _, n := range transports {
		if name == n {
			return true
		}
	}
	return false
}

func (s *clientSocket) onPacket(packets ...*parser.Packet) {
	s.callbacks.OnPacket(packets...)
	for _, packet := range packets {
		s.handlePacket(packet)
	}
}

func (s *clientSocket) handlePacket(packet *parser.Packet) {
	switch packet.Type {
	case parser.PacketTypeMessage:
		s.callbacks.OnMessage(packet.Data, packet.IsBinary)
	case parser.PacketTypePing:
		s.recordHeartbeat()
		select {
		case s.pingChan <- struct{}{}:
		default:
		}

		pong, err := parser.NewPacket(parser.PacketTypePong, false, packet.Data)
		if err != nil {
			s.onError(wrapInternalError(err))
			return
		}
		s.sendPackets(pong)
	case parser.PacketTypePong:
		s.recordHeartbeat()
	case parser.PacketTypeOpen:
		// The handshake is long done. A second OPEN violates the protocol.
		s.close(ReasonProtocolViolation, fmt.Errorf("%w: unexpected OPEN packet", ErrProtocolViolation))
	case parser.PacketTypeClose:
		s.transportMu.RLock()
		defer s.transportMu.RUnlock()
		s.transport.Close()
	}
}

func (s *clientSocket) recordHeartbeat() {
	s.lastHeartbeatMu.Lock()
	s.lastHeartbeat = time.Now()
	s.lastHeartbeatMu.Unlock()
}

func (s *clientSocket) LastHeartbeat() time.Time {
	s.lastHeartbeatMu.Lock()
	defer s.lastHeartbeatMu.Unlock()
	return s.lastHeartbeat
}

func (s *clientSocket) onError(err error) {
	if err != nil {
		s.callbacks.OnError(err)
	}
}

func (s *clientSocket) onTransportClose(name string, err error) {
	go func() { // <- To prevent s.TransportName() from blocking (locks transportMu).
		if err == nil {
			s.debug.Log("Transport", name, "closed")
		} else {
			s.debug.Log("Transport", name, "closed. Error", err)
		}

		select {
		case <-s.closeChan:
			return
		default:
		}

		if s.TransportName() != name {
			return
		}

		switch {
		case err == nil:
			s.close(ReasonTransportClose, nil)
		case errors.Is(err, parser.ErrInvalidPacketType),
			errors.Is(err, parser.ErrInvalidPacketSize),
			errors.Is(err, parser.ErrInvalidEncoding):
			s.close(ReasonProtocolViolation, fmt.Errorf("%w: %s", ErrProtocolViolation, err))
		default:
			s.close(ReasonTransportError, err)
		}
	}()
}

func (s *clientSocket) TransportName() string {
	s.transportMu.RLock()
	defer s.transportMu.RUnlock()
	return s.transport.Name()
}

func (s *clientSocket) SendMessage(data []byte, isBinary bool) error {
	p, err := parser.NewPacket(parser.PacketTypeMessage, isBinary, data)
	if err != nil {
		return wrapInternalError(err)
	}
	return s.Send(p)
}

func (s *clientSocket) Send(packets ...*parser.Packet) error {
	if !s.State().connected() {
		return ErrNotConnected
	}
	s.sendPackets(packets...)
	return nil
}

func (s *clientSocket) sendPackets(packets ...*parser.Packet) {
	s.transportMu.RLock()
	defer s.transportMu.RUnlock()
	s.writeWritablePackets(packets...)
}

// Equivalent of `getWritablePackets` in original Socket.IO: split a
// batch so that no single polling request exceeds maxPayload.
func (s *clientSocket) writeWritablePackets(packets ...*parser.Packet) {
	shouldCheckPayloadSize := s.maxPayload > 0 && s.transport.Name() == "polling" && len(packets) > 1
	if shouldCheckPayloadSize {
		payloadSize := 0
		total := len(packets)
		// Range based for loop overflows the array.
		// The check, `i < len(packets)`, needs to be made every time.
		for i, count := 0, 0; i < len(packets); i, count = i+1, count+1 {
			packet := packets[i]
			if len(packet.Data) > 0 {
				// Since we're dealing with the polling transport, supportsBinary argument is false.
				payloadSize += packet.EncodedLen(false)
			}
			if i > 0 && int64(payloadSize) > s.maxPayload {
				s.debug.Log("send", count, "out of", total)
				if len(packets) > 0 {
					s.transport.Send(packets[:i]...)
				}
				packets = packets[i:]
				i = 0
				payloadSize = 0
				continue
			}
			payloadSize += 1 // Separator
		}
		s.debug.Log("payload size is", payloadSize, "maxPayload", s.maxPayload)
	}
	if len(packets) > 0 {
		s.transport.Send(packets...)
	}
}

func (s *clientSocket) Disconnect() error {
	select {
	case <-s.closeChan:
		return ErrAlreadyClosed
	default:
	}
	s.close(ReasonForcedClose, nil)
	return nil
}

func (s *clientSocket) close(reason Reason, err error) {
	s.debug.Log("Going to close the socket if it is not already closed. Reason", reason)

	s.closeOnce.Do(func() {
		s.debug.Log("Going to close the socket. It is not already closed. Reason", reason)
		s.setState(StateClosing)
		close(s.closeChan)

		defer func() {
			s.setState(StateClosed)
			s.callbacks.OnClose(reason, err)
		}()

		if reason != ReasonTransportClose && reason != ReasonTransportError {
			s.transportMu.RLock()
			defer s.transportMu.RUnlock()
			if s.transport != nil {
				s.transport.Close()
			}
		}
	})
}

func (s *clientSocket) Close() {
	s.close(ReasonForcedClose, nil)
}
