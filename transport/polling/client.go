package polling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/revived-midas/rust-soket-io/internal/sync"
	"github.com/tomruk/yeast"

	"github.com/revived-midas/rust-soket-io/parser"
	"github.com/revived-midas/rust-soket-io/transport"
)

type ClientTransport struct {
	sid             string
	protocolVersion int
	url             *url.URL
	initialPacket   *parser.Packet

	requestHeader *transport.RequestHeader
	httpClient    *http.Client

	// Cache busting token generator for the `t` query parameter.
	// Prevents intermediaries from caching GET polls.
	yeaster *yeast.Yeaster

	callbacks *transport.Callbacks

	// Polling has no in-protocol sequence numbers. Concurrent POSTs
	// could reach the server out of submission order, so sends are
	// serialized here.
	sendMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func NewClientTransport(
	callbacks *transport.Callbacks,
	protocolVersion int,
	url url.URL,
	requestHeader *transport.RequestHeader,
	httpClient *http.Client,
) *ClientTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &ClientTransport{
		protocolVersion: protocolVersion,
		url:             &url,
		requestHeader:   requestHeader,
		httpClient:      httpClient,
		yeaster:         yeast.New(),
		callbacks:       callbacks,
		ctx:             ctx,
		cancel:          cancel,
	}
}

func (t *ClientTransport) Name() string { return "polling" }

func (t *ClientTransport) Handshake() (hr *parser.HandshakeResponse, err error) {
	packets, err := t.poll()
	if err != nil {
		return nil, err
	}

	if len(packets) < 1 {
		err = fmt.Errorf("polling: expected at least 1 packet")
		return
	}

	p := packets[0]
	hr, err = parser.ParseHandshakeResponse(p)
	if err != nil {
		return nil, err
	}

	t.sid = hr.SID
	pingInterval := hr.GetPingInterval()
	pingTimeout := hr.GetPingTimeout()

	// If this is a http.Transport, set the timeout
	ht, ok := t.httpClient.Transport.(*http.Transport)
	if ok {
		// Maximum time to wait for a HTTP response.
		ht.ResponseHeaderTimeout = pingInterval + pingTimeout
		// Add a reasonable time (10 seconds) so that even if the poll timeout is reached, we can still read the HTTP response.
		ht.ResponseHeaderTimeout += 10 * time.Second
	}

	if len(packets) == 2 {
		// Save the initial packet. It will be handled later on.
		t.initialPacket = packets[1]
	}

	return
}

func (t *ClientTransport) Run() {
	if t.initialPacket != nil {
		t.callbacks.OnPacket(t.initialPacket)
		// Set to nil for garbage collection.
		t.initialPacket = nil
	}

	for {
		select {
		case <-t.ctx.Done():
			return
		default:
			packets, err := t.poll()
			if err != nil {
				t.close(err)
				return
			}
			t.callbacks.OnPacket(packets...)
		}
	}
}

func (t *ClientTransport) newRequest(ctx context.Context, method string, body io.Reader, contentLength int) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.url.String(), body)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
		req.Header.Set("Content-Length", strconv.Itoa(contentLength))
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip")

	h := t.requestHeader.Header()
	for k, v := range h {
		for _, s := range v {
			req.Header.Set(k, s)
		}
	}

	q := req.URL.Query()
	q.Set("transport", "polling")
	q.Set("EIO", strconv.Itoa(t.protocolVersion))
	q.Set("t", t.yeaster.Yeast())

	if t.sid != "" {
		q.Set("sid", t.sid)
	}

	req.URL.RawQuery = q.Encode()
	return req, nil
}

func (t *ClientTransport) poll() ([]*parser.Packet, error) {
	req, err := t.newRequest(t.ctx, "GET", nil, 0)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("polling: non-200 HTTP response received. response code: %d", resp.StatusCode)
	}

	r, err := compressedReader(resp)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// An empty 200 response is a NOOP.
	if len(data) == 0 {
		p, err := parser.NewPacket(parser.PacketTypeNoop, false, nil)
		if err != nil {
			return nil, err
		}
		return []*parser.Packet{p}, nil
	}

	return parser.DecodePayloads(bytes.NewReader(data))
}

func (t *ClientTransport) Send(packets ...*parser.Packet) {
	err := t.send(t.ctx, packets...)
	if err != nil {
		t.close(err)
	}
}

func (t *ClientTransport) send(ctx context.Context, packets ...*parser.Packet) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	buf := bytes.Buffer{}
	buf.Grow(parser.EncodedPayloadsLen(packets...))

	err := parser.EncodePayloads(&buf, packets...)
	if err != nil {
		return err
	}

	req, err := t.newRequest(ctx, "POST", &buf, buf.Len())
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("polling: non-200 HTTP response received. response code: %d", resp.StatusCode)
	}

	r, err := compressedReader(resp)
	if err != nil {
		return err
	}
	defer r.Close()

	// Rapidly read the response body without heap allocation. The two
	// bytes can legally arrive in separate reads.
	var respBody [2]byte
	_, err = io.ReadFull(r, respBody[:])
	if err != nil {
		return fmt.Errorf("polling: invalid response received: %w", err)
	}

	rWeOk := respBody[0] == 'o' && respBody[1] == 'k'
	if !rWeOk {
		return fmt.Errorf("polling: invalid response received")
	}
	return nil
}

func classifyError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %s", transport.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s", transport.ErrConnectionLost, err)
}

func (t *ClientTransport) Discard() {
	t.once.Do(func() {
		t.cancel()
	})
}

func (t *ClientTransport) close(err error) {
	t.once.Do(func() {
		defer t.callbacks.OnClose(t.Name(), err)
		t.cancel()

		p, err := parser.NewPacket(parser.PacketTypeClose, false, nil)
		if err == nil {
			// Best effort. The poll context is already canceled, so
			// give the CLOSE packet its own bounded context.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				t.send(ctx, p)
			}()
		}
	})
}

func (t *ClientTransport) Close() {
	t.close(nil)
}
