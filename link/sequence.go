package link

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-seriallink/frame"
)

// MaxSeqID is the largest sequence id. Id 0 is reserved for requests that
// are not acknowledged.
const MaxSeqID = 255

// pendingAck is the completion state of one outstanding sequence id.
type pendingAck struct {
	id           uint8
	acknowledged atomic.Bool
	done         chan struct{}
	once         sync.Once
}

func newPendingAck(id uint8) *pendingAck {
	return &pendingAck{id: id, done: make(chan struct{})}
}

// complete marks the entry acknowledged. Only the first call has an effect.
func (p *pendingAck) complete() bool {
	if !p.acknowledged.CompareAndSwap(false, true) {
		return false
	}
	p.signal()

	return true
}

// signal wakes waiters without marking the entry acknowledged.
func (p *pendingAck) signal() {
	p.once.Do(func() { close(p.done) })
}

// SequenceTracker allocates sequence ids and tracks which of them have
// been acknowledged.
//
// Each outstanding id has its own entry, so acknowledgments for different
// requests never interfere. It is safe for concurrent use.
type SequenceTracker struct {
	allocMu  sync.Mutex
	lastID   uint8
	reserved [MaxSeqID + 1]bool
	pending  *xsync.MapOf[uint8, *pendingAck]
}

// NewSequenceTracker creates a tracker whose first allocated id is 1.
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{
		pending: xsync.NewMapOf[uint8, *pendingAck](),
	}
}

// Reserve excludes ids from allocation for requests. NextID still returns them.
func (t *SequenceTracker) Reserve(ids ...uint8) {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()

	for _, id := range ids {
		t.reserved[id] = true
	}
}

// NextID returns the next id in 1..255. After 255 it wraps to 1; 0 is never returned.
func (t *SequenceTracker) NextID() uint8 {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()

	return t.advance()
}

func (t *SequenceTracker) advance() uint8 {
	t.lastID++
	if t.lastID == 0 {
		t.lastID = 1
	}

	return t.lastID
}

// acquire allocates the next id that is neither reserved nor pending and
// registers it as pending.
func (t *SequenceTracker) acquire() (*pendingAck, error) {
	t.allocMu.Lock()
	defer t.allocMu.Unlock()

	for range MaxSeqID {
		id := t.advance()
		if t.reserved[id] {
			continue
		}

		p := newPendingAck(id)
		if _, loaded := t.pending.LoadOrStore(id, p); !loaded {
			return p, nil
		}
	}

	return nil, ErrNoFreeSeqID
}

// MarkPending clears the acknowledged state of id and returns a channel
// that is closed when id gets acknowledged.
//
// Marking an id that is already pending and unacknowledged keeps the existing entry.
func (t *SequenceTracker) MarkPending(id uint8) <-chan struct{} {
	p, _ := t.pending.Compute(id, func(old *pendingAck, loaded bool) (*pendingAck, bool) {
		if loaded && !old.acknowledged.Load() {
			return old, false
		}

		return newPendingAck(id), false
	})

	return p.done
}

// Observe records an acknowledgment. It reports whether msg is an ACK
// that completed a pending id. NACKs and ACKs for unknown ids are ignored.
func (t *SequenceTracker) Observe(msg *frame.Message) bool {
	if !msg.IsAck() {
		return false
	}

	p, ok := t.pending.Load(msg.SeqID)
	if !ok {
		return false
	}

	return p.complete()
}

// IsAcknowledged reports whether id is tracked and has been acknowledged.
func (t *SequenceTracker) IsAcknowledged(id uint8) bool {
	p, ok := t.pending.Load(id)

	return ok && p.acknowledged.Load()
}

// Release stops tracking id.
func (t *SequenceTracker) Release(id uint8) {
	t.pending.Delete(id)
}

// PendingCount returns the number of tracked ids.
func (t *SequenceTracker) PendingCount() int {
	return t.pending.Size()
}

// releaseAll wakes every waiter without acknowledging and clears the table.
func (t *SequenceTracker) releaseAll() {
	t.pending.Range(func(_ uint8, p *pendingAck) bool {
		p.signal()
		return true
	})
	t.pending.Clear()
}
