package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame delimiters.
const (
	// StartMarker opens a frame.
	StartMarker byte = 0x20
	// EndMarker closes a frame.
	EndMarker byte = 0x1F
)

// Acknowledgment codes carried in the first body byte of an ACK frame.
const (
	AckCode  byte = 1
	NackCode byte = 2
)

// HeaderSize is the number of payload bytes before the body: seqID, frameType, deviceID.
const HeaderSize = 3

// Payload capacity limits. The capacity bounds the payload (the bytes
// between the markers), not the whole frame.
const (
	// DefaultCapacity is the receive/send buffer capacity of the host side.
	DefaultCapacity = 100
	// PeerCapacity is the buffer capacity of the device firmware.
	PeerCapacity = 64
	// MinCapacity fits a header-only payload.
	MinCapacity = HeaderSize
	// MaxCapacity is bounded by the single-byte length fields of DATA_LIST records.
	MaxCapacity = 255
)

// Type is the frame type at payload position 1.
type Type byte

const (
	TypeData     Type = 1
	TypeAck      Type = 2
	TypeDataList Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "DATA"
	case TypeAck:
		return "ACK"
	case TypeDataList:
		return "DATA_LIST"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// IsValid reports whether t is one of the known frame types.
func (t Type) IsValid() bool {
	return t >= TypeData && t <= TypeDataList
}

var (
	ErrShortPayload    = errors.New("frame: payload shorter than header")
	ErrPayloadTooLarge = errors.New("frame: payload exceeds capacity")
	ErrMarkerInPayload = errors.New("frame: payload contains the end marker")
	ErrOutOfRange      = errors.New("frame: read out of range")
	ErrRecordTooLarge  = errors.New("frame: list record payload exceeds 255 bytes")
	ErrInvalidCapacity = errors.New("frame: invalid capacity")
)

// Encode wraps payload in the start and end markers.
//
// The payload is neither escaped nor validated; see Validate.
func Encode(payload []byte) []byte {
	return EncodeTo(make([]byte, 0, len(payload)+2), payload)
}

// EncodeTo appends the framed payload to dst and returns the extended slice.
func EncodeTo(dst []byte, payload []byte) []byte {
	dst = append(dst, StartMarker)
	dst = append(dst, payload...)

	return append(dst, EndMarker)
}

// Validate reports ErrMarkerInPayload when payload contains an END byte,
// which would close the frame early. START bytes inside a frame are data.
func Validate(payload []byte) error {
	if i := bytes.IndexByte(payload, EndMarker); i >= 0 {
		return fmt.Errorf("%w: 0x%02X at offset %d", ErrMarkerInPayload, payload[i], i)
	}

	return nil
}
