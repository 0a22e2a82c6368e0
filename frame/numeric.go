package frame

import (
	"encoding/binary"
	"math"
)

// Multi-byte values in message bodies are little-endian, the native order of
// the microcontrollers on the device side.

// PutUint16 writes v into b[0:2].
func PutUint16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

// Uint16 reads b[0:2].
func Uint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

// AppendUint16 appends the encoding of v to dst.
func AppendUint16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

// PutInt32 writes v into b[0:4].
func PutInt32(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v)) //nolint:gosec
}

// Int32 reads b[0:4].
func Int32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b)) //nolint:gosec
}

// AppendInt32 appends the encoding of v to dst.
func AppendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v)) //nolint:gosec
}

// PutFloat32 writes the IEEE-754 bits of v into b[0:4].
func PutFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// Float32 reads b[0:4].
func Float32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// AppendFloat32 appends the encoding of v to dst.
func AppendFloat32(dst []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
}
