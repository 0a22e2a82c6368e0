package transport

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pipe is one end of an in-memory serial line created by NewPipe.
//
// Written bytes are delivered to the other end on Flush. Closing one end
// lets the other end read what was already delivered and then report ErrClosed.
type Pipe struct {
	rx     *rxQueue
	peer   *Pipe
	txMu   sync.Mutex
	tx     []byte
	closed atomic.Bool
}

var (
	_ Transport     = (*Pipe)(nil)
	_ InputResetter = (*Pipe)(nil)
)

// NewPipe returns the two connected ends of an in-memory line.
func NewPipe() (*Pipe, *Pipe) {
	a := &Pipe{rx: newRxQueue()}
	b := &Pipe{rx: newRxQueue()}
	a.peer, b.peer = b, a

	return a, b
}

func (p *Pipe) Available() int {
	return p.rx.len()
}

func (p *Pipe) ReadByteTimeout(timeout time.Duration) (byte, error) {
	return p.rx.pop(timeout)
}

func (p *Pipe) WriteByte(b byte) error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.txMu.Lock()
	p.tx = append(p.tx, b)
	p.txMu.Unlock()

	return nil
}

// Write queues data like repeated WriteByte calls.
func (p *Pipe) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}

	p.txMu.Lock()
	p.tx = append(p.tx, data...)
	p.txMu.Unlock()

	return len(data), nil
}

func (p *Pipe) Flush() error {
	if p.closed.Load() {
		return ErrClosed
	}

	p.txMu.Lock()
	data := p.tx
	p.tx = nil
	p.txMu.Unlock()

	if !p.peer.rx.push(data) {
		return ErrClosed
	}

	return nil
}

// Inject delivers raw bytes to this end as if the peer had sent them.
func (p *Pipe) Inject(data []byte) {
	p.rx.push(data)
}

func (p *Pipe) Ready() bool {
	return !p.closed.Load() && !p.rx.closed()
}

func (p *Pipe) ResetInput() error {
	p.rx.reset()
	return nil
}

// Close closes this end. It is safe to call more than once.
func (p *Pipe) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.rx.close(ErrClosed)
	p.peer.rx.close(ErrClosed)

	return nil
}
