// Package frame implements the wire format of the serial link: marker
// delimited frames, the streaming decoder that recovers them from a raw
// byte stream, the decoded Message model, DATA_LIST batching and the
// little-endian numeric encodings shared with device firmware.
//
// # Wire Format
//
// A frame on the wire is:
//
//	START (0x20) | seqID | frameType | deviceID | body... | END (0x1F)
//
// Everything between the markers is the payload. Frame types are DATA (1),
// ACK (2) and DATA_LIST (3). The first body byte of an ACK frame is the
// acknowledgment code, ACK (1) or NACK (2).
//
// # Marker Bytes
//
// The format has no escaping. Inside a frame only END is significant: the
// decoder stores START bytes as data, so a body may hold 0x20. A payload
// byte equal to END closes the frame early on the receiving side. Validate
// reports such payloads so senders can refuse them instead of corrupting
// the stream; the format itself is kept bit-compatible with deployed
// firmware.
package frame
