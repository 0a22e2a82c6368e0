package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-seriallink/internal/task"
	"github.com/arloliu/go-seriallink/logger"
)

// Stream adapts an io.ReadWriteCloser, such as a serial port or a network
// connection, to a Transport.
//
// A background task reads the stream into a receive queue so that
// Available and ReadByteTimeout never block on the underlying stream. Writes are
// buffered until Flush.
type Stream struct {
	rwc        io.ReadWriteCloser
	rx         *rxQueue
	wmu        sync.Mutex
	w          *bufio.Writer
	mgr        *task.Manager
	closed     atomic.Bool
	resetInput func() error
	logger     logger.Logger
}

var (
	_ Transport     = (*Stream)(nil)
	_ InputResetter = (*Stream)(nil)
)

// NewStream starts reading rwc and returns the transport wrapping it.
func NewStream(rwc io.ReadWriteCloser, opts ...Option) (*Stream, error) {
	if rwc == nil {
		return nil, errors.New("transport: nil stream")
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newStream(rwc, cfg, nil)
}

func newStream(rwc io.ReadWriteCloser, cfg *config, resetInput func() error) (*Stream, error) {
	s := &Stream{
		rwc:        rwc,
		rx:         newRxQueue(),
		w:          bufio.NewWriter(rwc),
		mgr:        task.NewManager(context.Background(), cfg.logger),
		resetInput: resetInput,
		logger:     cfg.logger,
	}

	buf := make([]byte, cfg.readChunk)
	if err := s.mgr.Start("streamReader", func(_ context.Context) bool {
		return s.readOnce(buf)
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// readOnce moves one read of the underlying stream into the receive queue.
func (s *Stream) readOnce(buf []byte) bool {
	n, err := s.rwc.Read(buf)
	if n > 0 {
		s.rx.push(buf[:n])
	}

	if err == nil {
		return true
	}

	if s.closed.Load() {
		s.rx.close(ErrClosed)
	} else {
		s.logger.Warn("stream read failed", "error", err)
		s.rx.close(fmt.Errorf("%w: %w", ErrClosed, err))
	}

	return false
}

func (s *Stream) Available() int {
	return s.rx.len()
}

func (s *Stream) ReadByteTimeout(timeout time.Duration) (byte, error) {
	return s.rx.pop(timeout)
}

func (s *Stream) WriteByte(b byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	return s.w.WriteByte(b)
}

func (s *Stream) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	return s.w.Write(p)
}

func (s *Stream) Flush() error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	return s.w.Flush()
}

func (s *Stream) Ready() bool {
	return !s.closed.Load() && !s.rx.closed()
}

// ResetInput discards received bytes that were not read yet.
func (s *Stream) ResetInput() error {
	if s.resetInput != nil {
		if err := s.resetInput(); err != nil {
			return err
		}
	}
	s.rx.reset()

	return nil
}

// Close closes the underlying stream and waits for the reader to exit.
func (s *Stream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.wmu.Lock()
	_ = s.w.Flush()
	s.wmu.Unlock()

	s.mgr.Stop()
	err := s.rwc.Close()
	s.mgr.Wait()
	s.rx.close(ErrClosed)

	return err
}
