package transport

import (
	"sync"
	"time"

	"github.com/arloliu/go-seriallink/internal/pool"
	"github.com/arloliu/go-seriallink/internal/queue"
)

// rxQueue buffers received bytes for a single reader.
type rxQueue struct {
	mu     sync.Mutex
	buf    *queue.Queue[byte]
	err    error
	notify chan struct{}
}

func newRxQueue() *rxQueue {
	return &rxQueue{buf: queue.New[byte](256), notify: make(chan struct{}, 1)}
}

// push appends p. It reports false when the queue is closed.
func (q *rxQueue) push(p []byte) bool {
	if len(p) == 0 {
		return true
	}

	q.mu.Lock()
	if q.err != nil {
		q.mu.Unlock()
		return false
	}
	q.buf.Enqueue(p...)
	q.mu.Unlock()

	q.signal()

	return true
}

func (q *rxQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *rxQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.buf.Length()
}

// pop returns the next byte. Buffered bytes are still delivered after close;
// once drained, pop returns the close error.
func (q *rxQueue) pop(timeout time.Duration) (byte, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			pool.PutTimer(timer)
		}
	}()

	for {
		q.mu.Lock()
		if b, ok := q.buf.Dequeue(); ok {
			q.mu.Unlock()

			return b, nil
		}
		err := q.err
		q.mu.Unlock()

		if err != nil {
			return 0, err
		}
		if timeout <= 0 {
			return 0, ErrTimeout
		}

		if timer == nil {
			timer = pool.GetTimer(timeout)
		}

		select {
		case <-q.notify:
		case <-timer.C:
			return 0, ErrTimeout
		}
	}
}

// reset discards buffered bytes.
func (q *rxQueue) reset() {
	q.mu.Lock()
	q.buf.Reset()
	q.mu.Unlock()
}

// close makes pop return err once the buffer is drained. The first error wins.
func (q *rxQueue) close(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()

	q.signal()
}

func (q *rxQueue) closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.err != nil
}
