package link

import "github.com/arloliu/go-seriallink/frame"

// Params is the body of a request. The constructors below cover the
// request shapes understood by the device firmware.
type Params struct {
	buf [3]byte
	n   uint8
}

// NoParams is a request without body.
func NoParams() Params {
	return Params{}
}

// Byte is a request with one byte.
func Byte(v1 uint8) Params {
	return Params{buf: [3]byte{v1}, n: 1}
}

// Bytes2 is a request with two bytes.
func Bytes2(v1, v2 uint8) Params {
	return Params{buf: [3]byte{v1, v2}, n: 2}
}

// ByteUint16 is a request with one byte followed by a little-endian uint16.
func ByteUint16(v1 uint8, v2 uint16) Params {
	p := Params{buf: [3]byte{v1}, n: 3}
	frame.PutUint16(p.buf[1:], v2)

	return p
}

// Bytes3 is a request with three bytes.
func Bytes3(v1, v2, v3 uint8) Params {
	return Params{buf: [3]byte{v1, v2, v3}, n: 3}
}

// Bytes returns the encoded body.
func (p Params) Bytes() []byte {
	return p.buf[:p.n:p.n]
}

// Len returns the body size.
func (p Params) Len() int {
	return int(p.n)
}
