package frame

import "fmt"

// Message is a decoded frame payload.
type Message struct {
	SeqID    uint8
	Type     Type
	DeviceID uint8
	Body     []byte
}

// NewMessage creates a message. body is referenced, not copied.
func NewMessage(seqID uint8, typ Type, deviceID uint8, body []byte) *Message {
	return &Message{SeqID: seqID, Type: typ, DeviceID: deviceID, Body: body}
}

// ParseMessage splits a payload into its header fields and body.
//
// An ACK payload of exactly HeaderSize bytes is the firmware form
// [seq, ACK, code]: it is returned with DeviceID 0 and the code as the only
// body byte, so AckCode reads both forms the same way.
//
// The returned message references payload.
func ParseMessage(payload []byte) (*Message, error) {
	if len(payload) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}

	if Type(payload[1]) == TypeAck && len(payload) == HeaderSize {
		return &Message{SeqID: payload[0], Type: TypeAck, Body: payload[2:]}, nil
	}

	return &Message{
		SeqID:    payload[0],
		Type:     Type(payload[1]),
		DeviceID: payload[2],
		Body:     payload[HeaderSize:],
	}, nil
}

// Payload returns the header followed by the body.
func (m *Message) Payload() []byte {
	return m.AppendPayload(make([]byte, 0, HeaderSize+len(m.Body)))
}

// AppendPayload appends the payload to dst.
func (m *Message) AppendPayload(dst []byte) []byte {
	dst = append(dst, m.SeqID, byte(m.Type), m.DeviceID)
	return append(dst, m.Body...)
}

// Encode returns the message as a wire frame.
func (m *Message) Encode() []byte {
	buf := make([]byte, 0, HeaderSize+len(m.Body)+2)
	buf = append(buf, StartMarker)
	buf = m.AppendPayload(buf)

	return append(buf, EndMarker)
}

// AckCode returns the acknowledgment code of an ACK message, or 0 when
// the message is not an ACK or carries no code.
func (m *Message) AckCode() byte {
	if m.Type != TypeAck || len(m.Body) == 0 {
		return 0
	}

	return m.Body[0]
}

// IsAck reports whether m is a positive acknowledgment.
func (m *Message) IsAck() bool {
	return m.AckCode() == AckCode
}

// IsNack reports whether m is a negative acknowledgment.
func (m *Message) IsNack() bool {
	return m.AckCode() == NackCode
}

// ByteAt returns the body byte at pos.
func (m *Message) ByteAt(pos int) (byte, error) {
	if err := m.checkRange(pos, 1); err != nil {
		return 0, err
	}

	return m.Body[pos], nil
}

// Uint16At decodes a little-endian uint16 at body position pos.
func (m *Message) Uint16At(pos int) (uint16, error) {
	if err := m.checkRange(pos, 2); err != nil {
		return 0, err
	}

	return Uint16(m.Body[pos:]), nil
}

// Int32At decodes a little-endian int32 at body position pos.
func (m *Message) Int32At(pos int) (int32, error) {
	if err := m.checkRange(pos, 4); err != nil {
		return 0, err
	}

	return Int32(m.Body[pos:]), nil
}

// Float32At decodes a little-endian IEEE-754 float32 at body position pos.
func (m *Message) Float32At(pos int) (float32, error) {
	if err := m.checkRange(pos, 4); err != nil {
		return 0, err
	}

	return Float32(m.Body[pos:]), nil
}

func (m *Message) checkRange(pos, size int) error {
	if pos < 0 || pos+size > len(m.Body) {
		return fmt.Errorf("%w: %d bytes at %d, body has %d", ErrOutOfRange, size, pos, len(m.Body))
	}

	return nil
}

func (m *Message) String() string {
	return fmt.Sprintf("seq=%d type=%s device=%d body=[% X]", m.SeqID, m.Type, m.DeviceID, m.Body)
}
