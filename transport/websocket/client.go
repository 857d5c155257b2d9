package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/revived-midas/rust-soket-io/internal/sync"

	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/revived-midas/rust-soket-io/transport"
	"nhooyr.io/websocket"
)

type ClientTransport struct {
	sid string

	protocolVersion int
	url             *url.URL
	requestHeader   *transport.RequestHeader

	dialOptions *websocket.DialOptions
	conn        *websocket.Conn

	// 0 means no limit. Outbound packets above the limit are rejected
	// with transport.ErrOversizedFrame instead of being written.
	maxFrameSize int64

	// WebSocket frames map 1:1 to packets, but writes of a batch must
	// still leave in submission order.
	writeMu sync.Mutex

	callbacks *transport.Callbacks

	once sync.Once
}

func NewClientTransport(
	callbacks *transport.Callbacks,
	sid string,
	protocolVersion int,
	url url.URL,
	requestHeader *transport.RequestHeader,
	dialOptions *websocket.DialOptions,
	maxFrameSize int64,
) *ClientTransport {
	return &ClientTransport{
		sid: sid,

		protocolVersion: protocolVersion,
		url:             &url,
		requestHeader:   requestHeader,

		callbacks: callbacks,

		dialOptions:  dialOptions,
		maxFrameSize: maxFrameSize,
	}
}

func (t *ClientTransport) Name() string { return "websocket" }

func (t *ClientTransport) Handshake() (hr *parser.HandshakeResponse, err error) {
	q := t.url.Query()
	q.Set("transport", "websocket")
	q.Set("EIO", strconv.Itoa(t.protocolVersion))

	if t.sid != "" {
		q.Set("sid", t.sid)
	}

	t.url.RawQuery = q.Encode()

	switch t.url.Scheme {
	case "https":
		t.url.Scheme = "wss"
	case "http":
		t.url.Scheme = "ws"
	}

	dialOptions := t.dialOptions
	if dialOptions == nil {
		dialOptions = new(websocket.DialOptions)
	}
	if dialOptions.HTTPHeader == nil {
		dialOptions.HTTPHeader = t.requestHeader.Header()
	} else {
		h := dialOptions.HTTPHeader.Clone()
		for k, v := range t.requestHeader.Header() {
			for _, s := range v {
				h.Set(k, s)
			}
		}
		dialOptions.HTTPHeader = h
	}

	t.conn, _, err = websocket.Dial(context.Background(), t.url.String(), dialOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", transport.ErrConnectionLost, err)
	}

	// If sid is set this means that we have already connected and
	// we're using this transport for upgrade purposes.

	// If sid is not set, we should receive the OPEN packet and return the values decoded from it.
	if t.sid == "" {
		p, err := t.nextPacket()
		if err != nil {
			return nil, err
		}

		hr, err = parser.ParseHandshakeResponse(p)
		if err != nil {
			return nil, err
		}

		t.sid = hr.SID
	}

	return
}

func (t *ClientTransport) Run() {
	for {
		p, err := t.nextPacket()
		if err != nil {
			t.close(err)
			return
		}

		t.callbacks.OnPacket(p)
	}
}

func (t *ClientTransport) nextPacket() (*parser.Packet, error) {
	mt, r, err := t.conn.Reader(context.Background())
	if err != nil {
		return nil, err
	}
	return parser.Decode(r, mt == websocket.MessageBinary)
}

func (t *ClientTransport) Send(packets ...*parser.Packet) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	for _, packet := range packets {
		err := t.send(packet)
		if err != nil {
			t.close(err)
			break
		}
	}
}

func (t *ClientTransport) send(packet *parser.Packet) error {
	if t.maxFrameSize > 0 && int64(packet.EncodedLen(true)) > t.maxFrameSize {
		return fmt.Errorf("%w: %d bytes", transport.ErrOversizedFrame, packet.EncodedLen(true))
	}

	var mt websocket.MessageType
	if packet.IsBinary {
		mt = websocket.MessageBinary
	} else {
		mt = websocket.MessageText
	}

	w, err := t.conn.Writer(context.Background(), mt)
	if err != nil {
		return err
	}
	defer w.Close()
	return packet.Encode(w, true)
}

func (t *ClientTransport) Discard() {
	t.once.Do(func() {
		if t.conn != nil {
			t.conn.Close(websocket.StatusNormalClosure, "")
		}
	})
}

func (t *ClientTransport) close(err error) {
	t.once.Do(func() {
		err = classifyError(err)

		defer t.callbacks.OnClose(t.Name(), err)

		if t.conn != nil {
			t.conn.Close(websocket.StatusNormalClosure, "")
		}
	})
}

// A graceful peer close surfaces as nil. Anything else means the
// connection died underneath us.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrOversizedFrame) {
		return err
	}
	// Decode failures keep their identity: the session maps them to a
	// protocol violation, not to a lost connection.
	if errors.Is(err, parser.ErrInvalidEncoding) ||
		errors.Is(err, parser.ErrInvalidPacketType) ||
		errors.Is(err, parser.ErrInvalidPacketSize) {
		return err
	}

	status := websocket.CloseStatus(err)
	for _, expected := range expectedCloseCodes {
		if status == expected {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", transport.ErrConnectionLost, err)
}

func (t *ClientTransport) Close() {
	t.close(nil)
}
