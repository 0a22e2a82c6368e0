package frame

import "fmt"

// Decoder recovers frame payloads from a byte stream.
//
// The decoder keeps its state between Feed calls, so a frame split across
// several reads decodes the same as a frame read at once. It is not safe for
// concurrent use; the receive loop owns it.
type Decoder struct {
	buf        []byte
	capacity   int
	collecting bool
	dropped    uint64
}

// NewDecoder creates a decoder whose payloads hold at most capacity bytes.
func NewDecoder(capacity int) (*Decoder, error) {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d, must be in [%d, %d]", ErrInvalidCapacity, capacity, MinCapacity, MaxCapacity)
	}

	return &Decoder{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}, nil
}

// Feed consumes one byte. When b completes a frame, Feed returns a copy of
// the payload and true.
//
// Bytes outside a frame are discarded. While collecting, only END closes the
// frame; a START byte is ordinary payload data. A payload that would grow
// beyond the capacity is dropped and the decoder goes back to seeking the
// next START byte.
func (d *Decoder) Feed(b byte) ([]byte, bool) {
	if !d.collecting {
		if b == StartMarker {
			d.collecting = true
			d.buf = d.buf[:0]
		}

		return nil, false
	}

	if b == EndMarker {
		payload := make([]byte, len(d.buf))
		copy(payload, d.buf)
		d.Reset()

		return payload, true
	}

	if len(d.buf) == d.capacity {
		d.dropped++
		d.Reset()

		return nil, false
	}

	d.buf = append(d.buf, b)

	return nil, false
}

// Decode feeds every byte of data and returns the completed payloads.
func (d *Decoder) Decode(data []byte) [][]byte {
	var payloads [][]byte
	for _, b := range data {
		if payload, ok := d.Feed(b); ok {
			payloads = append(payloads, payload)
		}
	}

	return payloads
}

// Reset discards a partially collected frame.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.collecting = false
}

// Pending returns the number of payload bytes collected so far.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Collecting reports whether a START byte was seen and the frame is still open.
func (d *Decoder) Collecting() bool {
	return d.collecting
}

// Dropped returns the number of partial frames discarded by overflow.
func (d *Decoder) Dropped() uint64 {
	return d.dropped
}

// Capacity returns the maximum payload size.
func (d *Decoder) Capacity() int {
	return d.capacity
}
