package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// DialWebSocket connects to a WebSocket serial bridge and returns it as a Transport.
//
// Each binary message carries a chunk of the serial byte stream; other
// message types are ignored. Use WithBasicAuth for bridges that require
// HTTP Basic authentication.
func DialWebSocket(ctx context.Context, rawURL string, opts ...Option) (*Stream, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("transport: unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.handshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.insecureSkipVerify} //nolint:gosec
	}

	headers := http.Header{}
	if cfg.username != "" && cfg.password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.username + ":" + cfg.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.dialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, rawURL, headers) //nolint:bodyclose
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}

		return nil, fmt.Errorf("transport: websocket connection failed: %w", err)
	}

	cfg.logger.Debug("websocket bridge connected", "url", u.Redacted())

	return newStream(newWSConn(conn), cfg, nil)
}

// wsConn presents a WebSocket connection as a byte stream.
type wsConn struct {
	conn *websocket.Conn
	buf  []byte
	wmu  sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

// Read is only called by the stream reader task.
func (w *wsConn) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}

		if messageType == websocket.BinaryMessage {
			w.buf = data
		}
	}

	n := copy(p, w.buf)
	w.buf = w.buf[n:]

	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	w.wmu.Lock()
	defer w.wmu.Unlock()

	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (w *wsConn) Close() error {
	w.wmu.Lock()
	_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.wmu.Unlock()

	return w.conn.Close()
}
