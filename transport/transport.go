// Package transport provides the byte channels a link runs over.
//
// A Transport is a half-abstract serial line: bytes are read one at a time
// with a timeout and written into an outgoing buffer that Flush pushes to
// the peer. Implementations are provided for an in-memory pipe, generic
// io.ReadWriteCloser streams, serial ports, TCP bridges and WebSocket
// bridges.
package transport

import (
	"errors"
	"io"
	"time"
)

var (
	// ErrTimeout is returned by ReadByteTimeout when no byte arrived within the timeout.
	ErrTimeout = errors.New("transport: read timeout")
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport: closed")
)

// Transport is the byte channel used by a link engine.
//
// ReadByteTimeout is only called from a single goroutine. Writes may come from
// several goroutines but are serialized by the caller.
type Transport interface {
	// Available returns the number of bytes that can be read without blocking.
	Available() int
	// ReadByteTimeout reads one byte, waiting at most timeout. It returns ErrTimeout
	// when nothing arrived.
	ReadByteTimeout(timeout time.Duration) (byte, error)
	// WriteByte queues one byte for sending.
	WriteByte(b byte) error
	// Flush sends all queued bytes.
	Flush() error
	// Ready reports whether the transport is open and usable.
	Ready() bool
	io.Closer
}

// InputResetter is implemented by transports that can discard unread input.
type InputResetter interface {
	ResetInput() error
}

// WriteAll writes data to t and flushes it.
//
// Transports implementing io.Writer receive data in one call.
func WriteAll(t Transport, data []byte) error {
	if w, ok := t.(io.Writer); ok {
		for written := 0; written < len(data); {
			n, err := w.Write(data[written:])
			written += n

			if err != nil {
				return err
			}
		}

		return t.Flush()
	}

	for _, b := range data {
		if err := t.WriteByte(b); err != nil {
			return err
		}
	}

	return t.Flush()
}
