package eio

import (
	"net/http"
	"net/url"
	"time"

	"github.com/revived-midas/rust-soket-io/transport"
	_websocket "nhooyr.io/websocket"
)

type ClientConfig struct {
	// URL path prefix of the Engine.IO endpoint.
	//
	// Default value is: /engine.io/
	Path string

	// Valid transports are: polling, websocket.
	//
	// Default value is: ["polling", "websocket"]
	Transports []string

	// Timeout for transport upgrade.
	// If this timeout exceeds before the probe completes, the socket stays on polling.
	UpgradeTimeout time.Duration

	// Additional callback to get notified about the transport upgrade.
	UpgradeDone func(transportName string)

	// Additional HTTP headers to use.
	// Can be used for authentication.
	RequestHeader http.Header

	// Additional query parameters to append to every polling request
	// and to the WebSocket connection URL.
	RequestQuery url.Values

	// Custom HTTP transport to use.
	//
	// If this is a http.Transport it will be cloned and timeout(s) will be set later on.
	// If not, it is the user's responsibility to set a proper timeout so when polling takes too long, we don't fail.
	HTTPTransport http.RoundTripper

	// Custom WebSocket dial options to use.
	WebSocketDialOptions *_websocket.DialOptions

	// Maximum size of an outgoing WebSocket frame. Larger packets are
	// rejected instead of sent. 0 means no limit.
	MaxWebSocketFrameSize int64

	// Redial automatically when the session dies for any reason other
	// than an explicit Close/Disconnect. The socket itself never
	// reconnects; this is purely a policy of the Dial facade.
	Reconnection bool

	// Give up redialing after this many consecutive failed attempts.
	// 0 means no limit.
	ReconnectionAttempts uint64

	// Log socket internals to stdout.
	Debug bool
}

func Dial(rawURL string, callbacks *Callbacks, config *ClientConfig) (Socket, error) {
	if callbacks == nil {
		callbacks = new(Callbacks)
	}
	callbacks.setMissing()

	if config == nil {
		config = new(ClientConfig)
	}

	if config.Reconnection {
		return dialWithReconnect(rawURL, callbacks, config)
	}
	return dialOnce(rawURL, callbacks, config)
}

func dialOnce(rawURL string, callbacks *Callbacks, config *ClientConfig) (*clientSocket, error) {
	socket := &clientSocket{
		state: StateIdle,

		httpClient:    newHTTPClient(config.HTTPTransport),
		requestHeader: transport.NewRequestHeader(config.RequestHeader),
		wsDialOptions: config.WebSocketDialOptions,
		maxFrameSize:  config.MaxWebSocketFrameSize,

		upgradeTimeout: defaultUpgradeTimeout,
		upgradeDone:    config.UpgradeDone,

		callbacks: *callbacks,

		pingChan: make(chan struct{}, 1),

		closeChan: make(chan struct{}),

		debug: NewNoopDebugger(),
	}

	var transports []string
	if len(config.Transports) > 0 {
		transports = config.Transports
	} else {
		transports = []string{"polling", "websocket"}
	}

	if config.UpgradeTimeout != 0 {
		socket.upgradeTimeout = config.UpgradeTimeout
	}

	if socket.upgradeDone == nil {
		socket.upgradeDone = func(transportName string) {}
	}

	if config.Debug {
		socket.debug = NewPrintDebugger().WithDynamicContext("eio: clientSocket", func() string {
			return "sid: " + socket.sid
		})
	}

	var err error
	socket.url, err = parseURL(rawURL, config.Path, config.RequestQuery)
	if err != nil {
		return nil, err
	}

	err = socket.connect(transports)
	if err != nil {
		return nil, err
	}

	return socket, nil
}

func parseURL(rawURL string, path string, query url.Values) (*url.URL, error) {
	url, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	switch url.Scheme {
	case "wss":
		url.Scheme = "https"
	case "ws":
		url.Scheme = "http"
	}

	if path != "" {
		url.Path = path
	} else if url.Path == "" || url.Path == "/" {
		url.Path = defaultPath
	}

	if len(url.Path) > 0 && url.Path[len(url.Path)-1] != '/' {
		url.Path += "/"
	}

	if len(query) > 0 {
		q := url.Query()
		for k, values := range query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		url.RawQuery = q.Encode()
	}

	return url, nil
}

func newHTTPClient(t http.RoundTripper) *http.Client {
	// Clone the transport, so that we don't change the default timeouts later on. See: polling/client.go
	// If we're unable to clone the transport, leave it as it is.
	if t == nil {
		ht, ok := http.DefaultTransport.(*http.Transport)
		if ok {
			t = ht.Clone()
		} else {
			t = http.DefaultTransport
		}
	} else {
		ht, ok := t.(*http.Transport)
		if ok {
			t = ht.Clone()
		}
	}

	return &http.Client{
		Transport: t,
		Timeout:   0,
	}
}
