package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-seriallink/frame"
)

func TestSequenceTracker_NextIDWraps(t *testing.T) {
	tr := NewSequenceTracker()

	for want := 1; want <= 255; want++ {
		require.Equal(t, uint8(want), tr.NextID())
	}
	assert.Equal(t, uint8(1), tr.NextID(), "id 0 is skipped on wraparound")
}

func TestSequenceTracker_Observe(t *testing.T) {
	tr := NewSequenceTracker()
	done := tr.MarkPending(5)

	// ACK for another id
	assert.False(t, tr.Observe(frame.NewMessage(6, frame.TypeAck, 1, []byte{frame.AckCode})))
	assert.False(t, tr.IsAcknowledged(5))

	// NACK for the id
	assert.False(t, tr.Observe(frame.NewMessage(5, frame.TypeAck, 1, []byte{frame.NackCode})))
	assert.False(t, tr.IsAcknowledged(5))

	// DATA frame with the id
	assert.False(t, tr.Observe(frame.NewMessage(5, frame.TypeData, 1, []byte{frame.AckCode})))
	assert.False(t, tr.IsAcknowledged(5))

	select {
	case <-done:
		require.FailNow(t, "done closed before acknowledgment")
	default:
	}

	assert.True(t, tr.Observe(frame.NewMessage(5, frame.TypeAck, 1, []byte{frame.AckCode})))
	assert.True(t, tr.IsAcknowledged(5))
	assert.False(t, tr.IsAcknowledged(6))

	select {
	case <-done:
	default:
		require.FailNow(t, "done not closed after acknowledgment")
	}

	// duplicate ACK is accepted silently
	assert.False(t, tr.Observe(frame.NewMessage(5, frame.TypeAck, 1, []byte{frame.AckCode})))
	assert.True(t, tr.IsAcknowledged(5))
}

func TestSequenceTracker_MarkPending(t *testing.T) {
	tr := NewSequenceTracker()

	first := tr.MarkPending(9)
	assert.Equal(t, first, tr.MarkPending(9), "an unacknowledged entry is kept")

	tr.Observe(frame.NewMessage(9, frame.TypeAck, 1, []byte{frame.AckCode}))
	require.True(t, tr.IsAcknowledged(9))

	second := tr.MarkPending(9)
	assert.NotEqual(t, first, second)
	assert.False(t, tr.IsAcknowledged(9), "marking clears the acknowledged state")
	assert.Equal(t, 1, tr.PendingCount())

	tr.Release(9)
	assert.Zero(t, tr.PendingCount())
	assert.False(t, tr.IsAcknowledged(9))
}

func TestSequenceTracker_AcquireSkipsPendingAndReserved(t *testing.T) {
	tr := NewSequenceTracker()
	tr.Reserve(frame.EndMarker, frame.StartMarker)
	tr.MarkPending(2)

	p1, err := tr.acquire()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), p1.id)

	p3, err := tr.acquire()
	require.NoError(t, err)
	assert.Equal(t, uint8(3), p3.id, "pending id 2 is skipped")

	seen := map[uint8]bool{}
	for range 250 {
		p, err := tr.acquire()
		require.NoError(t, err)
		seen[p.id] = true
	}

	assert.False(t, seen[frame.EndMarker])
	assert.False(t, seen[frame.StartMarker])
	assert.False(t, seen[0])
	assert.Equal(t, uint8(31), frame.EndMarker)

	_, err = tr.acquire()
	require.ErrorIs(t, err, ErrNoFreeSeqID)

	tr.Release(100)
	p, err := tr.acquire()
	require.NoError(t, err)
	assert.Equal(t, uint8(100), p.id)
}

func TestSequenceTracker_ReleaseAll(t *testing.T) {
	tr := NewSequenceTracker()
	p, err := tr.acquire()
	require.NoError(t, err)

	woke := make(chan struct{})
	go func() {
		<-p.done
		close(woke)
	}()

	tr.releaseAll()

	select {
	case <-woke:
	case <-time.After(time.Second):
		require.FailNow(t, "waiter not released")
	}
	assert.False(t, p.acknowledged.Load())
	assert.Zero(t, tr.PendingCount())

	// later ACKs are ignored
	assert.False(t, tr.Observe(frame.NewMessage(p.id, frame.TypeAck, 1, []byte{frame.AckCode})))
}
