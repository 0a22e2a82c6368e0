package transport

import (
	"context"
	"fmt"
	"net"
)

// DialTCP connects to a TCP serial bridge, such as ser2net, and returns the
// connection as a Transport.
func DialTCP(ctx context.Context, addr string, opts ...Option) (*Stream, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: cfg.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to connect to %s: %w", addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	cfg.logger.Debug("tcp bridge connected", "addr", addr)

	return newStream(conn, cfg, nil)
}
