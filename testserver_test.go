package eio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/revived-midas/rust-soket-io/internal/json"
	"github.com/revived-midas/rust-soket-io/internal/sync"
	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

// Just enough of an Engine.IO v4 server to exercise the client:
// polling handshake, long polls, POST payloads, WebSocket accept and
// the upgrade probe.
type testServer struct {
	t *testing.T

	sid          string
	pingInterval time.Duration
	pingTimeout  time.Duration
	maxPayload   int64
	upgrades     []string

	// Ignore the probe PING, so the upgrade times out.
	noProbePong bool

	// Respond to the handshake request with HTTP 500.
	failHandshake bool

	// If set, emit PINGs with this period after the handshake.
	pingEvery time.Duration
	pingOnce  sync.Once

	// Payloads waiting for a long poll.
	pollOut chan []byte

	// MESSAGE packets received from the client, over either transport,
	// in arrival order.
	received chan *parser.Packet

	// PONG packets received from the client.
	pongs chan *parser.Packet

	// Suspend the pinger without tearing the server down.
	pingPaused atomic.Bool

	mu       sync.Mutex
	wsConn   *websocket.Conn
	upgraded bool

	lastPath  string
	lastQuery url.Values

	done     chan struct{}
	doneOnce sync.Once
}

func newTestServer(t *testing.T) *testServer {
	return &testServer{
		t: t,

		sid:          "s1",
		pingInterval: 25 * time.Second,
		pingTimeout:  5 * time.Second,
		maxPayload:   1e6,

		pollOut:  make(chan []byte, 64),
		received: make(chan *parser.Packet, 256),
		pongs:    make(chan *parser.Packet, 64),
		done:     make(chan struct{}),
	}
}

func (s *testServer) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *testServer) handshakeBody() []byte {
	hr := &parser.HandshakeResponse{
		SID:          s.sid,
		Upgrades:     s.upgrades,
		PingInterval: s.pingInterval.Milliseconds(),
		PingTimeout:  s.pingTimeout.Milliseconds(),
		MaxPayload:   s.maxPayload,
	}
	body, err := json.Marshal(hr)
	require.NoError(s.t, err)
	return body
}

func (s *testServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.lastPath = r.URL.Path
	s.lastQuery = r.URL.Query()
	s.mu.Unlock()

	switch r.URL.Query().Get("transport") {
	case "polling":
		s.servePolling(w, r)
	case "websocket":
		s.serveWebSocket(w, r)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (s *testServer) servePolling(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch r.Method {
	case "GET":
		if q.Get("sid") == "" {
			if s.failHandshake {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			p := mustCreatePacket(s.t, parser.PacketTypeOpen, false, s.handshakeBody())
			w.Write(p.Build(false))
			s.startPinger()
			return
		}

		select {
		case payload := <-s.pollOut:
			w.Write(payload)
		case <-time.After(250 * time.Millisecond):
			// Empty 200. The client treats this as a NOOP.
		case <-s.done:
		}
	case "POST":
		require.Equal(s.t, s.sid, q.Get("sid"))

		packets, err := parser.DecodePayloads(r.Body)
		require.NoError(s.t, err)
		for _, packet := range packets {
			s.handleClientPacket(packet)
		}

		w.Write([]byte("ok"))
	}
}

func (s *testServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	direct := r.URL.Query().Get("sid") == ""

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	if direct {
		if s.failHandshake {
			conn.Close(websocket.StatusInternalError, "")
			return
		}
		p := mustCreatePacket(s.t, parser.PacketTypeOpen, false, s.handshakeBody())
		err = conn.Write(context.Background(), websocket.MessageText, p.Build(true))
		require.NoError(s.t, err)
	}

	s.mu.Lock()
	s.wsConn = conn
	if direct {
		s.upgraded = true
	}
	s.mu.Unlock()

	if direct {
		s.startPinger()
	}

	s.wsReadLoop(conn)
}

func (s *testServer) wsReadLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.Read(context.Background())
		if err != nil {
			return
		}

		packet, err := parser.Parse(data, mt == websocket.MessageBinary)
		require.NoError(s.t, err)

		switch packet.Type {
		case parser.PacketTypePing:
			// The upgrade probe.
			if string(packet.Data) == "probe" && !s.noProbePong {
				pong := mustCreatePacket(s.t, parser.PacketTypePong, false, packet.Data)
				conn.Write(context.Background(), websocket.MessageText, pong.Build(true))
			}
		case parser.PacketTypeUpgrade:
			s.mu.Lock()
			s.upgraded = true
			s.mu.Unlock()
		default:
			s.handleClientPacket(packet)
		}
	}
}

func (s *testServer) handleClientPacket(packet *parser.Packet) {
	switch packet.Type {
	case parser.PacketTypeMessage:
		s.received <- packet
	case parser.PacketTypePong:
		select {
		case s.pongs <- packet:
		default:
		}
	}
}

// Deliver packets to the client over whichever transport is
// authoritative right now.
func (s *testServer) sendToClient(packets ...*parser.Packet) {
	s.mu.Lock()
	upgraded, conn := s.upgraded, s.wsConn
	s.mu.Unlock()

	if upgraded && conn != nil {
		for _, packet := range packets {
			var err error
			if packet.IsBinary {
				err = conn.Write(context.Background(), websocket.MessageBinary, packet.Data)
			} else {
				err = conn.Write(context.Background(), websocket.MessageText, packet.Build(true))
			}
			if err != nil {
				return
			}
		}
		return
	}

	buf := bytes.Buffer{}
	buf.Grow(parser.EncodedPayloadsLen(packets...))
	err := parser.EncodePayloads(&buf, packets...)
	require.NoError(s.t, err)

	select {
	case s.pollOut <- buf.Bytes():
	case <-s.done:
	}
}

func (s *testServer) startPinger() {
	if s.pingEvery <= 0 {
		return
	}
	s.pingOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(s.pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if s.pingPaused.Load() {
						continue
					}
					s.sendToClient(mustCreatePacket(s.t, parser.PacketTypePing, false, nil))
				case <-s.done:
					return
				}
			}
		}()
	})
}

func (s *testServer) waitMessage(timeout time.Duration) *parser.Packet {
	select {
	case packet := <-s.received:
		return packet
	case <-time.After(timeout):
		s.t.Error("testServer: timed out waiting for a message")
		return nil
	}
}

func mustCreatePacket(t *testing.T, packetType parser.PacketType, isBinary bool, data []byte) *parser.Packet {
	p, err := parser.NewPacket(packetType, isBinary, data)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestServerAndHTTP(t *testing.T, configure func(server *testServer)) (*testServer, *httptest.Server) {
	server := newTestServer(t)
	if configure != nil {
		configure(server)
	}
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		server.stop()
		ts.Close()
	})
	return server, ts
}
